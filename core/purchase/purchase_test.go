package purchase

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		sales []CourseSales
		want  Summary
	}{
		{
			name:  "no courses",
			sales: nil,
			want:  Summary{CourseSales: []CourseSales{}},
		},
		{
			name: "course without sales",
			sales: []CourseSales{
				{Name: "Go Mastery", Price: 50},
			},
			want: Summary{
				CourseSales: []CourseSales{{Name: "Go Mastery", Price: 50}},
			},
		},
		{
			name: "mixed",
			sales: []CourseSales{
				{Name: "Go Mastery", Price: 50, Sales: 3, Revenue: 150},
				{Name: "SQL Basics", Price: 30, Sales: 0, Revenue: 0},
				{Name: "Concurrency", Price: 20, Sales: 2, Revenue: 40},
			},
			want: Summary{
				TotalSales:   5,
				TotalRevenue: 190,
				CourseSales: []CourseSales{
					{Name: "Go Mastery", Price: 50, Sales: 3, Revenue: 150},
					{Name: "SQL Basics", Price: 30, Sales: 0, Revenue: 0},
					{Name: "Concurrency", Price: 20, Sales: 2, Revenue: 40},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.sales)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("summary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
