package metrics

import (
	"errors"
	"io"
	"log"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveHelpers(t *testing.T) {
	Init(nil, nil)

	before := testutil.ToFloat64(snapshotLoadTotal.WithLabelValues(resultSuccess))
	ObserveSnapshotLoad("", 10*time.Millisecond)
	if got := testutil.ToFloat64(snapshotLoadTotal.WithLabelValues(resultSuccess)); got != before+1 {
		t.Fatalf("expected snapshot loads %v, got %v", before+1, got)
	}

	ObserveTierMemo(true)
	ObserveTierMemo(true)
	ObserveTierMemo(false)
	if got := testutil.ToFloat64(tierMemoTotal.WithLabelValues(outcomeHit)); got < 2 {
		t.Fatalf("expected at least 2 memo hits, got %v", got)
	}

	ObserveAPIRequest("/api/v1/devices", 404, time.Millisecond)
	if got := testutil.ToFloat64(apiRequestTotal.WithLabelValues("/api/v1/devices", "4xx")); got != 1 {
		t.Fatalf("expected one 4xx request, got %v", got)
	}

	ObserveExport("xlsx", ResultError, time.Millisecond)
	if got := testutil.ToFloat64(exportTotal.WithLabelValues("xlsx", resultError)); got != 1 {
		t.Fatalf("expected one failed export, got %v", got)
	}

	ObserveCompare(ResultSuccess, 3)
	if samples := testutil.CollectAndCount(compareDevices); samples != 1 {
		t.Fatalf("expected one histogram series, got %d", samples)
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 204: "2xx", 304: "3xx", 400: "4xx", 503: "5xx", 0: "unknown"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Fatalf("status %d: expected %s, got %s", status, want, got)
		}
	}
}

func TestQueryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	logger := log.New(io.Discard, "", 0)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM devices")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	if got := queryCount(db, logger, "SELECT COUNT(*) FROM devices"); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sensors")).
		WillReturnError(errors.New("relation does not exist"))
	if got := queryCount(db, logger, "SELECT COUNT(*) FROM sensors"); got != 0 {
		t.Fatalf("expected 0 on error, got %v", got)
	}

	if got := queryCount(nil, logger, "SELECT 1"); got != 0 {
		t.Fatalf("expected 0 for nil db, got %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
