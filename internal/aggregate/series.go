package aggregate

import (
	"github.com/rgayle/waterwatch/internal/apperr"
	"github.com/rgayle/waterwatch/internal/models"
)

// ReportKind selects which slice of a rollup a chart renders. It is a
// closed set dispatched by switch; an unknown kind fails parsing, it never
// reaches Series.
type ReportKind int

const (
	ReportChlorine ReportKind = iota
	ReportBacteriological
	ReportVisits
	ReportDistribution
)

func (k ReportKind) String() string {
	switch k {
	case ReportChlorine:
		return "chlorine"
	case ReportBacteriological:
		return "bacteriological"
	case ReportVisits:
		return "visits"
	case ReportDistribution:
		return "distribution"
	default:
		return "unknown"
	}
}

func ParseReportKind(s string) (ReportKind, error) {
	switch s {
	case "chlorine":
		return ReportChlorine, nil
	case "bacteriological":
		return ReportBacteriological, nil
	case "visits":
		return ReportVisits, nil
	case "distribution":
		return ReportDistribution, nil
	default:
		return 0, apperr.Validationf("unknown report kind %q", s)
	}
}

// SeriesPoint is one labeled bar/segment of a chart.
type SeriesPoint struct {
	Label  string         `json:"label"`
	Values map[string]int `json:"values"`
}

// Series projects sorted rollup rows into the chart data for one report
// kind. Distribution is the only kind that aggregates across supplies
// (treated vs untreated counts); the rest emit one point per supply.
func Series(rows []models.RollupRow, kind ReportKind) []SeriesPoint {
	switch kind {
	case ReportChlorine:
		points := make([]SeriesPoint, 0, len(rows))
		for _, r := range rows {
			points = append(points, SeriesPoint{
				Label: r.SupplyName,
				Values: map[string]int{
					"total":    r.ChlorineTotal,
					"positive": r.ChlorinePositive,
					"negative": r.ChlorineNegative,
				},
			})
		}
		return points

	case ReportBacteriological:
		points := make([]SeriesPoint, 0, len(rows))
		for _, r := range rows {
			points = append(points, SeriesPoint{
				Label: r.SupplyName,
				Values: map[string]int{
					"positive": r.BacteriologicalPositive,
					"negative": r.BacteriologicalNegative,
					"pending":  r.BacteriologicalPending,
					"rejected": r.BacteriologicalRejected,
					"broken":   r.BacteriologicalBroken,
				},
			})
		}
		return points

	case ReportVisits:
		points := make([]SeriesPoint, 0, len(rows))
		for _, r := range rows {
			points = append(points, SeriesPoint{
				Label:  r.SupplyName,
				Values: map[string]int{"visits": r.Visits},
			})
		}
		return points

	case ReportDistribution:
		var treated, untreated int
		for _, r := range rows {
			switch r.Kind {
			case models.SupplyTreated:
				treated++
			case models.SupplyUntreated:
				untreated++
			}
		}
		return []SeriesPoint{
			{Label: "treated", Values: map[string]int{"supplies": treated}},
			{Label: "untreated", Values: map[string]int{"supplies": untreated}},
		}

	default:
		return nil
	}
}
