package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/groundlink/core/model"
)

func sampleFleet() []model.Vehicle {
	return []model.Vehicle{
		{
			ID: "V1", Status: model.StatusWaiting, IsActive: true, IsAvailable: true,
			JobsAvailable: 2, Battery: 81.5,
			LastContact: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{ID: "V2", Status: model.StatusUnavailable},
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleFleet()))
	var got []model.Vehicle
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "V1", got[0].ID)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleFleet()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "id,status,active,available,jobs,battery,last_contact", lines[0])
	require.Contains(t, lines[1], "V1,WAITING,true,true,2,81.5")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleFleet()))
	require.Contains(t, buf.String(), "V1\tWAITING\tactive")
	require.Contains(t, buf.String(), "V2\tUNAVAILABLE\tinactive")
}

func TestWriteFormatSelection(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "", sampleFleet()))
	require.NoError(t, Write(&buf, "json", nil))
	require.Error(t, Write(&buf, "xml", nil))
}
