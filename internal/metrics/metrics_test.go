package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndGauges(t *testing.T) {
	req := require.New(t)
	conns, rooms := 3, 1
	m := New(Gauges{
		Connections: func() int { return conns },
		Rooms:       func() int { return rooms },
	})

	m.Sent.WithLabelValues("offer").Inc()
	m.Sent.WithLabelValues("offer").Inc()
	m.Dropped.WithLabelValues("start-call").Inc()

	req.Equal(2.0, testutil.ToFloat64(m.Sent.WithLabelValues("offer")))
	req.Equal(1.0, testutil.ToFloat64(m.Dropped.WithLabelValues("start-call")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	req.Contains(string(body), "tandem_connections 3")
	req.Contains(string(body), "tandem_rooms 1")
	req.Contains(string(body), `tandem_messages_sent_total{type="offer"} 2`)
}
