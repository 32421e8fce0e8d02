package summary

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/broadband-cli/internal/cache"
	"github.com/sells-group/broadband-cli/internal/model"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "summary"

// csvRow fixes the column order. Tags must match model.RankingProperties.
type csvRow struct {
	District                     string `csv:"District"`
	WirelineProviderEquals0      string `csv:"wirelineProviderEquals0"`
	WirelineProviderGreaterThan1 string `csv:"wirelineProviderGreaterThan1"`
	WirelineProviderGreaterThan2 string `csv:"wirelineProviderGreaterThan2"`
	WirelineProviderGreaterThan3 string `csv:"wirelineProviderGreaterThan3"`
	WirelineProviderGreaterThan4 string `csv:"wirelineProviderGreaterThan4"`
	WirelineProviderGreaterThan5 string `csv:"wirelineProviderGreaterThan5"`
	WirelineProviderGreaterThan6 string `csv:"wirelineProviderGreaterThan6"`
	WirelineProviderGreaterThan7 string `csv:"wirelineProviderGreaterThan7"`
	WirelineProviderGreaterThan8 string `csv:"wirelineProviderGreaterThan8"`
}

func toCSVRow(r Row) csvRow {
	c := make([]string, len(model.RankingProperties))
	copy(c, r.Counters)
	return csvRow{
		District:                     r.District,
		WirelineProviderEquals0:      c[0],
		WirelineProviderGreaterThan1: c[1],
		WirelineProviderGreaterThan2: c[2],
		WirelineProviderGreaterThan3: c[3],
		WirelineProviderGreaterThan4: c[4],
		WirelineProviderGreaterThan5: c[5],
		WirelineProviderGreaterThan6: c[6],
		WirelineProviderGreaterThan7: c[7],
		WirelineProviderGreaterThan8: c[8],
	}
}

// Header returns the summary column names.
func Header() []string {
	return append([]string{"District"}, model.RankingProperties...)
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(csvRow{}); err != nil {
		return eris.Wrap(err, "summary: encode header")
	}
	for _, r := range rows {
		if err := enc.Encode(toCSVRow(r)); err != nil {
			return eris.Wrapf(err, "summary: encode %s", r.District)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "summary: flush csv")
	}
	return nil
}

// WriteCSVFile writes the CSV to path. The file is replaced only once
// complete.
func WriteCSVFile(path string, rows []Row) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return err
	}
	return cache.WriteFileAtomic(path, buf.Bytes())
}

// WriteXLSX writes the same table as a workbook with a single sheet.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "summary: add sheet")
	}

	addRow(sheet, Header())
	for _, r := range rows {
		addRow(sheet, append([]string{r.District}, r.Counters...))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return eris.Wrap(err, "summary: encode workbook")
	}
	return cache.WriteFileAtomic(path, buf.Bytes())
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
