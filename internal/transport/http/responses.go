package http

import (
	"tradepulse/internal/analytics"
	"tradepulse/internal/dataset"
)

// aggregateDTO is the JSON shape of an aggregation result. Groups whose
// every value was missing render null, not zero.
type aggregateDTO struct {
	GroupBy []string   `json:"group_by"`
	Column  string     `json:"column"`
	Reduce  string     `json:"reduce"`
	Groups  []groupDTO `json:"groups"`
}

type groupDTO struct {
	Keys  []string            `json:"keys"`
	Value analytics.JSONFloat `json:"value"`
	Count int                 `json:"count"`
}

func aggregateResponse(r *dataset.AggregateResult) aggregateDTO {
	dto := aggregateDTO{
		GroupBy: r.GroupBy,
		Column:  r.Column,
		Reduce:  string(r.Reduce),
		Groups:  make([]groupDTO, 0, len(r.Groups)),
	}
	for _, g := range r.Groups {
		keys := make([]string, len(g.Keys))
		for i, k := range g.Keys {
			keys[i] = k.String()
		}
		dto.Groups = append(dto.Groups, groupDTO{Keys: keys, Value: analytics.JSONFloat(g.Value), Count: g.Count})
	}
	return dto
}

// pivotDTO is the JSON shape of a pivot; absent mean cells render null.
type pivotDTO struct {
	RowName string                  `json:"row_name"`
	ColName string                  `json:"col_name"`
	Reduce  string                  `json:"reduce"`
	Rows    []string                `json:"rows"`
	Cols    []string                `json:"cols"`
	Cells   [][]analytics.JSONFloat `json:"cells"`
}

func pivotResponse(p *dataset.Pivot) pivotDTO {
	dto := pivotDTO{
		RowName: p.RowName,
		ColName: p.ColName,
		Reduce:  string(p.Reduce),
		Rows:    make([]string, len(p.RowKeys)),
		Cols:    make([]string, len(p.ColKeys)),
		Cells:   make([][]analytics.JSONFloat, len(p.Cells)),
	}
	for i, rk := range p.RowKeys {
		dto.Rows[i] = rk.String()
	}
	for i, ck := range p.ColKeys {
		dto.Cols[i] = ck.String()
	}
	for i, row := range p.Cells {
		dto.Cells[i] = make([]analytics.JSONFloat, len(row))
		for j, v := range row {
			dto.Cells[i][j] = analytics.JSONFloat(v)
		}
	}
	return dto
}
