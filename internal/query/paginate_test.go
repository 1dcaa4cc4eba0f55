package query

import (
	"math"
	"testing"

	"github.com/yungbote/studentrisk-backend/internal/domain/student"
)

func records(n int, outcome func(i int) student.Outcome) []*student.Record {
	out := make([]*student.Record, n)
	for i := range out {
		o := outcome(i)
		out[i] = &student.Record{AgeAtEnrollment: 17 + i, PredictedOutcome: string(o), Target: string(o)}
	}
	return out
}

func TestPaginateMath(t *testing.T) {
	t.Parallel()

	all := records(25, func(int) student.Outcome { return student.Graduate })
	page := Paginate(all, Params{Limit: 10, Offset: 20})
	if len(page.Data) != 5 || page.Total != 25 || page.Page != 3 || page.TotalPages != 3 {
		t.Fatalf("got len=%d total=%d page=%d totalPages=%d", len(page.Data), page.Total, page.Page, page.TotalPages)
	}
	if page.Data[0] != all[20] || page.Data[4] != all[24] {
		t.Fatalf("wrong slice or order")
	}
}

func TestPaginateHugeLimit(t *testing.T) {
	t.Parallel()

	all := records(5, func(int) student.Outcome { return student.Graduate })
	page := Paginate(all, Params{Limit: math.MaxInt, Offset: 1})
	if len(page.Data) != 4 || page.Total != 5 || page.Page != 1 || page.TotalPages != 1 {
		t.Fatalf("got len=%d %+v", len(page.Data), page)
	}
	if page.Data[0] != all[1] {
		t.Fatalf("wrong slice start")
	}
	far := Paginate(all, Params{Limit: math.MaxInt, Offset: math.MaxInt})
	if len(far.Data) != 0 || far.Page != 2 {
		t.Fatalf("far: len=%d %+v", len(far.Data), far)
	}
}

func TestPaginateFirstAndBeyond(t *testing.T) {
	t.Parallel()

	all := records(25, func(int) student.Outcome { return student.Dropout })
	first := Paginate(all, Params{Limit: 10})
	if len(first.Data) != 10 || first.Page != 1 || first.Data[0] != all[0] {
		t.Fatalf("first page: %+v", first)
	}
	beyond := Paginate(all, Params{Limit: 10, Offset: 40})
	if len(beyond.Data) != 0 || beyond.Total != 25 || beyond.Page != 5 || beyond.TotalPages != 3 {
		t.Fatalf("beyond: len=%d %+v", len(beyond.Data), beyond)
	}
	if beyond.Data == nil {
		t.Fatalf("data must be an empty slice, not nil")
	}
}

func TestPaginateFilter(t *testing.T) {
	t.Parallel()

	all := records(12, func(i int) student.Outcome {
		switch i % 3 {
		case 0:
			return student.Graduate
		case 1:
			return student.Dropout
		default:
			return student.Enrolled
		}
	})
	page := Paginate(all, Params{Limit: 3, OutcomeFilter: "Dropout"})
	if page.Total != 4 || page.TotalPages != 2 || len(page.Data) != 3 {
		t.Fatalf("got %+v", page)
	}
	for _, r := range page.Data {
		if r.PredictedOutcome != "Dropout" {
			t.Fatalf("filter leaked %q", r.PredictedOutcome)
		}
	}
	if got := Paginate(all, Params{Limit: 3, OutcomeFilter: "dropout"}); got.Total != 0 {
		t.Fatalf("filter must be case-sensitive, got total %d", got.Total)
	}
}

func TestFilterFallsBackToTarget(t *testing.T) {
	t.Parallel()

	all := []*student.Record{
		{Target: "Enrolled"},
		{PredictedOutcome: "Graduate", Target: "Enrolled"},
		nil,
	}
	got := Filter(all, "Enrolled")
	if len(got) != 1 || got[0] != all[0] {
		t.Fatalf("got %d records", len(got))
	}
}

func TestPaginateNonPositiveLimit(t *testing.T) {
	t.Parallel()

	all := records(7, func(int) student.Outcome { return student.Graduate })
	for _, limit := range []int{0, -5} {
		page := Paginate(all, Params{Limit: limit, Offset: -3})
		if len(page.Data) != 7 || page.Page != 1 || page.TotalPages != 1 || page.Total != 7 {
			t.Fatalf("limit %d: %+v", limit, page)
		}
	}
	empty := Paginate(nil, Params{})
	if empty.TotalPages != 0 || empty.Total != 0 || len(empty.Data) != 0 {
		t.Fatalf("empty: %+v", empty)
	}
}

func TestPaginateEveryRecordAppearsOnce(t *testing.T) {
	t.Parallel()

	all := records(23, func(int) student.Outcome { return student.Enrolled })
	for _, limit := range []int{1, 4, 10, 23, 50} {
		seen := map[*student.Record]int{}
		first := Paginate(all, Params{Limit: limit})
		for p := 0; p < first.TotalPages; p++ {
			for _, r := range Paginate(all, Params{Limit: limit, Offset: p * limit}).Data {
				seen[r]++
			}
		}
		if len(seen) != len(all) {
			t.Fatalf("limit %d: saw %d of %d", limit, len(seen), len(all))
		}
		for _, n := range seen {
			if n != 1 {
				t.Fatalf("limit %d: record seen %d times", limit, n)
			}
		}
	}
}
