package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeefy/recordchat/internal/models"
)

var (
	demoIndustries = []string{"Technology", "Healthcare", "Finance", "Education", "Retail"}
	demoTypes      = []string{"Client", "Project", "Product", "Service", "Report"}
	demoStatuses   = []string{"Active", "Pending", "Completed", "Archived"}
)

// SampleRecords are inserted into an empty store at startup.
func SampleRecords() []models.Record {
	return []models.Record{
		{ID: 1, Name: "Record 1", Value: "Value 1"},
		{ID: 2, Name: "Record 2", Value: "Value 2"},
	}
}

// DemoRecords builds n records named "<Type> <k> - <Industry>", so every
// name carries a sector the chat analyzer can group on.
func DemoRecords(n int) []models.Record {
	out := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		industry := demoIndustries[i%len(demoIndustries)]
		typ := demoTypes[i%len(demoTypes)]
		status := demoStatuses[i%len(demoStatuses)]
		out = append(out, models.Record{
			ID:    int64(i + 1),
			Name:  fmt.Sprintf("%s %d - %s", typ, i/5+1, industry),
			Value: fmt.Sprintf("%s %s in %s sector, Record #%d", status, strings.ToLower(typ), industry, i+1),
		})
	}
	return out
}

// EnsureSamples inserts SampleRecords when the store is empty and reports
// whether it did.
func EnsureSamples(ctx context.Context, st Store) (bool, error) {
	n, err := st.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := st.InsertMany(ctx, SampleRecords()); err != nil {
		return false, err
	}
	return true, nil
}

// Reseed wipes the store and inserts recs.
func Reseed(ctx context.Context, st Store, recs []models.Record) error {
	if err := st.DeleteAll(ctx); err != nil {
		return err
	}
	return st.InsertMany(ctx, recs)
}
