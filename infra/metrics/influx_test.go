package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/groundlink/core/metrics"
)

func TestInfluxFallbackOnUnreachableServer(t *testing.T) {
	sink := NewInfluxSinkWithFallback(coremetrics.Config{
		InfluxEnabled: true,
		InfluxURL:     "http://127.0.0.1:1",
		InfluxBucket:  "groundlink",
	})
	_, isNop := sink.(coremetrics.NopSink)
	require.True(t, isNop)
}

func TestInfluxFallbackOnFailingHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"fail","name":"influxdb"}`))
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(coremetrics.Config{
		InfluxEnabled: true,
		InfluxURL:     srv.URL,
		InfluxBucket:  "groundlink",
	})
	_, isNop := sink.(coremetrics.NopSink)
	require.True(t, isNop)
}

func TestInfluxHealthyServerKeepsSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"pass","name":"influxdb"}`))
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(coremetrics.Config{
		InfluxEnabled: true,
		InfluxURL:     srv.URL,
		InfluxBucket:  "groundlink",
	})
	is, ok := sink.(*InfluxSink)
	require.True(t, ok)
	is.Close()
}

func TestMultiSinkFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	require.NoError(t, m.RecordMessage(coremetrics.MessageRecord{Type: "CONNECT"}))
	require.NoError(t, m.RecordAck(coremetrics.AckRecord{Type: "START"}))
	require.NoError(t, m.RecordMissionStatus(coremetrics.MissionRecord{Status: "READY"}))
	require.NoError(t, m.RecordFleetSize(2))

	for _, s := range []*recordingSink{a, b} {
		msgs, acks, missions := s.counts()
		require.Equal(t, 1, msgs)
		require.Equal(t, 1, acks)
		require.Equal(t, 1, missions)
	}
}
