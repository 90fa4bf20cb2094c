package handlers

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/lightgrid/lightgrid-services-uploads/audit"
	"github.com/lightgrid/lightgrid-services-uploads/caching"
	"github.com/lightgrid/lightgrid-services-uploads/hashing"
	"github.com/lightgrid/lightgrid-services-uploads/logging"
	"github.com/lightgrid/lightgrid-services-uploads/models"
	"github.com/lightgrid/lightgrid-services-uploads/services"
	"github.com/lightgrid/lightgrid-services-uploads/store"
)

const testCaller = "creator@example.com"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNopLogger()
	sessions := store.NewMemorySessionStore()
	files := store.NewMemoryFileStore()
	objects := store.NewLocalObjectStorage(afero.NewMemMapFs(), "/objects", logger)
	cache := caching.NewNullCachingService()

	uploads := services.NewUploadServiceImpl(
		sessions, files, objects,
		services.AllowAllProducts{}, audit.NewLoggerSink(logger), cache,
		16, time.Hour, logger,
	)
	fileSvc := services.NewFileServiceImpl(files, objects, cache, logger)

	r := gin.New()
	NewHTTPHandler(uploads, fileSvc, func() bool { return true }, logger).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(identityHeader, testCaller)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func putChunk(t *testing.T, r *gin.Engine, uploadID string, index int, data []byte, declaredHash string) *httptest.ResponseRecorder {
	t.Helper()

	path := fmt.Sprintf("/v1/uploads/%s/chunks/%d", uploadID, index)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(data))
	req.Header.Set(identityHeader, testCaller)
	req.Header.Set(chunkHashHeader, declaredHash)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testPayload() []byte {
	p := make([]byte, 40)
	copy(p, "PSEQ")
	binary.LittleEndian.PutUint32(p[10:], 16)  // channels
	binary.LittleEndian.PutUint32(p[14:], 200) // frames
	p[18] = 25
	return p
}

func TestRequireIdentity(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/files", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "UNAUTHENTICATED", resp.Error)
}

func TestUploadFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	payload := testPayload()

	var init models.InitiateUploadResponse
	w := doJSON(t, r, http.MethodPost, "/v1/uploads", models.InitiateUploadRequest{
		FileName: "show.fseq",
		FileSize: int64(len(payload)),
		Category: "RENDERED",
	}, &init)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 3, init.TotalChunks)

	for i := 0; i < 3; i++ {
		lo, hi := i*16, (i+1)*16
		if hi > len(payload) {
			hi = len(payload)
		}
		chunk := payload[lo:hi]

		w := putChunk(t, r, init.UploadID, i, chunk, hashing.HashBuffer(chunk))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	var done models.CompleteUploadResponse
	w = doJSON(t, r, http.MethodPost, "/v1/uploads/"+init.UploadID+"/complete", nil, &done)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, hashing.HashBuffer(payload), done.ContentHash)
	require.NotNil(t, done.Metadata)

	var files models.FilesResponse
	w = doJSON(t, r, http.MethodGet, "/v1/files", nil, &files)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, files.Files, 1)

	var dl models.DownloadURLResponse
	w = doJSON(t, r, http.MethodGet, "/v1/files/"+done.FileID+"/download", nil, &dl)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, dl.DownloadURL)
}

func TestSubmitChunkErrorMapping(t *testing.T) {
	r := newTestRouter(t)
	payload := testPayload()

	var init models.InitiateUploadResponse
	w := doJSON(t, r, http.MethodPost, "/v1/uploads", models.InitiateUploadRequest{
		FileName: "show.fseq",
		FileSize: int64(len(payload)),
		Category: "RENDERED",
	}, &init)
	require.Equal(t, http.StatusCreated, w.Code)

	chunk := payload[:16]

	// corrupted transfer
	w = putChunk(t, r, init.UploadID, 0, chunk, hashing.HashBuffer([]byte("other")))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// missing hash header
	w = putChunk(t, r, init.UploadID, 0, chunk, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	// duplicate index
	w = putChunk(t, r, init.UploadID, 0, chunk, hashing.HashBuffer(chunk))
	require.Equal(t, http.StatusOK, w.Code)
	w = putChunk(t, r, init.UploadID, 0, chunk, hashing.HashBuffer(chunk))
	require.Equal(t, http.StatusConflict, w.Code)

	// out-of-range index
	w = putChunk(t, r, init.UploadID, 99, chunk, hashing.HashBuffer(chunk))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// unknown session
	w = putChunk(t, r, "no-such-upload", 0, chunk, hashing.HashBuffer(chunk))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitiateRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewBufferString("{not json"))
	req.Header.Set(identityHeader, testCaller)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
