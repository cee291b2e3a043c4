package warmer

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/torxx666/rainy-day/pkg/logging"
	"github.com/torxx666/rainy-day/pkg/upstream"
	"github.com/torxx666/rainy-day/pkg/weather"
)

type fakeRetriever struct {
	mu             sync.Mutex
	seen           []string
	correlationIDs map[string]bool
	failSuffix     string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, city string) (*weather.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, city)
	if f.correlationIDs == nil {
		f.correlationIDs = make(map[string]bool)
	}
	f.correlationIDs[logging.CorrelationID(ctx)] = true
	f.mu.Unlock()

	if f.failSuffix != "" && strings.HasSuffix(city, f.failSuffix) {
		return nil, weather.ErrUnavailable
	}
	return &weather.Result{
		Reading:    upstream.Reading{City: city},
		ServedFrom: weather.ServedUpstream,
	}, nil
}

func TestWarm_AllSucceed(t *testing.T) {
	retriever := &fakeRetriever{}
	cities := []string{"Paris", "London", "Tokyo", "Berlin", "Sydney"}
	w := New(retriever, cities, zerolog.Nop())

	succeeded, failed := w.Warm(context.Background())

	if succeeded != 5 || failed != 0 {
		t.Errorf("Warm() = (%d, %d), want (5, 0)", succeeded, failed)
	}

	retriever.mu.Lock()
	defer retriever.mu.Unlock()
	if len(retriever.seen) != 5 {
		t.Errorf("retrieved %d cities, want 5", len(retriever.seen))
	}
}

func TestWarm_FailuresCountedNotFatal(t *testing.T) {
	retriever := &fakeRetriever{failSuffix: "X"}
	w := New(retriever, []string{"Paris", "CityX", "Tokyo", "TownX"}, zerolog.Nop())

	succeeded, failed := w.Warm(context.Background())

	if succeeded != 2 || failed != 2 {
		t.Errorf("Warm() = (%d, %d), want (2, 2)", succeeded, failed)
	}
}

func TestWarm_EmptyCityList(t *testing.T) {
	w := New(&fakeRetriever{}, nil, zerolog.Nop())

	succeeded, failed := w.Warm(context.Background())
	if succeeded != 0 || failed != 0 {
		t.Errorf("Warm() = (%d, %d), want (0, 0)", succeeded, failed)
	}
}

func TestWarm_EachCityGetsOwnCorrelationID(t *testing.T) {
	retriever := &fakeRetriever{}
	w := New(retriever, []string{"Paris", "London", "Tokyo"}, zerolog.Nop())

	w.Warm(context.Background())

	retriever.mu.Lock()
	defer retriever.mu.Unlock()
	if len(retriever.correlationIDs) != 3 {
		t.Errorf("distinct correlation ids = %d, want 3", len(retriever.correlationIDs))
	}
	if retriever.correlationIDs[""] {
		t.Error("a warming request ran without a correlation id")
	}
}
