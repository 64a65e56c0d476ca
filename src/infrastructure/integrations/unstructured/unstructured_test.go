package unstructured_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TayoO/embedchain/src/infrastructure/integrations/unstructured"
)

func TestConvertToText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/general/v0/general", r.URL.Path)

		file, header, err := r.FormFile("files")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "report.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4", string(data))

		_ = json.NewEncoder(w).Encode([]unstructured.UnstructuredElement{
			{Type: "Title", Text: "Quarterly report"},
			{Type: "NarrativeText", Text: "  "},
			{Type: "NarrativeText", Text: "Revenue grew."},
		})
	}))
	defer srv.Close()

	svc := unstructured.NewUnstructuredService(srv.URL+"/", nil)
	got, err := svc.ConvertToText(context.Background(), "report.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\n\nRevenue grew.", got)
}

func TestConvertToTextServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := unstructured.NewUnstructuredService(srv.URL, nil)
	_, err := svc.ConvertToText(context.Background(), "x.pdf", []byte("x"))
	assert.ErrorContains(t, err, "conversion service error")
}
