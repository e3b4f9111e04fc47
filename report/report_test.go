package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() Receipt {
	return Receipt{
		FeeID:       "F1",
		StudentID:   "S1",
		Type:        "tuition",
		Description: "Semester <3> fee",
		Amount:      1000,
		AmountPaid:  400,
		Outstanding: 600,
		Status:      "partial",
		DueDate:     time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Payments:    []ReceiptLine{{PaidAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC), Method: "upi", Reference: "TX1", Amount: 400}},
		IssuedAt:    time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestReceiptHTML(t *testing.T) {
	html, err := ReceiptHTML(sampleReceipt())
	require.NoError(t, err)
	assert.Contains(t, html, "1000.00")
	assert.Contains(t, html, "600.00")
	assert.Contains(t, html, "15 Jan 2026")
	assert.Contains(t, html, "TX1")
	assert.Contains(t, html, "Semester &lt;3&gt; fee")
}

func TestRenderReceiptPostsToGotenberg(t *testing.T) {
	var gotPath, gotBody, gotWidth, gotMargin string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotWidth = r.FormValue("paperWidth")
		gotMargin = r.FormValue("marginTop")
		file, _, err := r.FormFile("files")
		if err == nil {
			raw, _ := io.ReadAll(file)
			gotBody = string(raw)
		}
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL + "/").RenderReceipt(context.Background(), sampleReceipt())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))
	assert.Equal(t, "/forms/chromium/convert/html", gotPath)
	assert.True(t, strings.Contains(gotBody, "Fee receipt F1"))
	assert.Equal(t, "5.83", gotWidth)
	assert.Equal(t, "0.4", gotMargin)
}

func TestRenderFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("chromium crashed\n"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p>x</p>")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "chromium crashed", se.Body)
	assert.Error(t, NewClient(srv.URL).Ping(context.Background()))
}
