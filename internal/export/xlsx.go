// Package export renders stored reports as spreadsheets.
package export

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/watanabekazunori/tonarino/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetScores      = "スコア"
	SheetComparisons = "比較"
	SheetReviews     = "口コミ"
	SheetSuggestions = "改善提案"
)

// WriteXLSX writes rec as a workbook to w.
func WriteXLSX(w io.Writer, rec *model.ReportRecord) error {
	f, err := build(rec)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// SaveXLSX writes rec as a workbook to path.
func SaveXLSX(path string, rec *model.ReportRecord) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := WriteXLSX(out, rec); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(out.Close(), "export: close file")
}

func build(rec *model.ReportRecord) (*xlsx.File, error) {
	if rec == nil {
		return nil, eris.New("export: nil report")
	}
	f := xlsx.NewFile()

	scores, err := f.AddSheet(SheetScores)
	if err != nil {
		return nil, eris.Wrap(err, "export: add scores sheet")
	}
	header := []string{"店舗", "区分", "評価", "口コミ数"}
	for _, a := range model.Axes {
		header = append(header, a.Label())
	}
	addStrings(scores, header...)
	addStore(scores, rec.Summary.MyStore, true)
	for _, c := range rec.Summary.Competitors {
		addStore(scores, c, false)
	}

	comparisons, err := f.AddSheet(SheetComparisons)
	if err != nil {
		return nil, eris.Wrap(err, "export: add comparison sheet")
	}
	addStrings(comparisons, "項目", "比較")
	for _, c := range rec.Summary.AxisComparisons {
		addStrings(comparisons, c.Label, c.Commentary)
	}

	reviews, err := f.AddSheet(SheetReviews)
	if err != nil {
		return nil, eris.Wrap(err, "export: add reviews sheet")
	}
	addStrings(reviews, "種別", "評価", "内容")
	addExcerpts(reviews, "良い口コミ", rec.Summary.GoodReviews)
	addExcerpts(reviews, "悪い口コミ", rec.Summary.BadReviews)

	suggestions, err := f.AddSheet(SheetSuggestions)
	if err != nil {
		return nil, eris.Wrap(err, "export: add suggestions sheet")
	}
	addStrings(suggestions, "#", "提案")
	list := rec.Suggestions
	if len(list) == 0 {
		list = rec.Summary.Suggestions
	}
	for i, s := range list {
		row := suggestions.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(s)
	}
	return f, nil
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// addStore writes one store row with scores in canonical axis order. Axes
// missing from the analysis are written as "-".
func addStore(sheet *xlsx.Sheet, s model.StoreAnalysis, self bool) {
	row := sheet.AddRow()
	row.AddCell().SetString(s.Name)
	kind := "競合"
	if self {
		kind = "自店"
	}
	row.AddCell().SetString(kind)
	row.AddCell().SetFloat(s.Rating)
	row.AddCell().SetInt(s.ReviewCount)

	byAxis := make(map[model.Axis]int, len(s.Scores))
	for _, sc := range s.Scores {
		byAxis[sc.Axis] = sc.Score
	}
	for _, a := range model.Axes {
		cell := row.AddCell()
		if v, ok := byAxis[a]; ok {
			cell.SetInt(v)
		} else {
			cell.SetString("-")
		}
	}
}

func addExcerpts(sheet *xlsx.Sheet, kind string, excerpts []model.ReviewExcerpt) {
	for _, e := range excerpts {
		row := sheet.AddRow()
		row.AddCell().SetString(kind)
		row.AddCell().SetInt(e.Rating)
		row.AddCell().SetString(e.Text)
	}
}
