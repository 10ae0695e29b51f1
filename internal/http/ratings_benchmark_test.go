package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkHandleGetRating(b *testing.B) {
	srv := buildTestServer(b, storedReader())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rating?imdbId=tt1234567", nil))
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
