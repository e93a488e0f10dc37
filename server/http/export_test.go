package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opdss/tabexport/contracts/locker"
	"github.com/opdss/tabexport/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tableBody = `{
	"columns":[{"name":"id","title":"编号","type":"number"},{"name":"name","title":"姓名"},{"name":"password"}],
	"rows":[[1,"alice","x"],[2,"bob","y"],[3,"carol","z"]]
}`

type memoryStorage struct {
	files map[string]string
}

func (m *memoryStorage) PutStream(_ context.Context, filename string, rs io.Reader) error {
	b, err := io.ReadAll(rs)
	m.files[filename] = string(b)
	return err
}

func (m *memoryStorage) Url(fileKey string) string {
	return "http://cdn.local/" + fileKey
}

type nopLocker struct {
	keys *[]string
	key  string
}

func (l nopLocker) Lock(time.Duration) error { return nil }

func (l nopLocker) TryLock(time.Duration) error {
	*l.keys = append(*l.keys, l.key)
	return nil
}

func (l nopLocker) Unlock() error { return nil }

func newTestEngine(opts ...ExportOption) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewExportHandler(zap.NewNop(), ExportConfig{MaxRowsPerPage: 1000, SheetNamePrefix: "Sheet", UploadPrefix: "exports"}, opts...)
	h.Register(engine.Group("/api", LimitBody(1<<20)))
	return engine
}

func do(engine http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestExportCsv(t *testing.T) {
	engine := newTestEngine()
	w := do(engine, http.MethodPost, "/api/export?format=csv&filename=users&header_filter="+`name+!%3D+%22password%22`, tableBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "编号,姓名\n1,alice\n2,bob\n3,carol\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "users.csv")
	assert.Equal(t, "3", w.Header().Get("X-Export-Rows"))
}

func TestExportCsvPages(t *testing.T) {
	engine := newTestEngine()
	w := do(engine, http.MethodPost, "/api/export?format=csv&max_rows_per_page=2", tableBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get("X-Export-Pages"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".zip")
}

func TestExportXlsx(t *testing.T) {
	engine := newTestEngine()
	w := do(engine, http.MethodPost, "/api/export", tableBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-Export-Pages"))
	assert.Equal(t, "PK", w.Body.String()[:2])
}

func TestExportErrors(t *testing.T) {
	engine := newTestEngine()
	tests := []struct {
		name   string
		target string
		body   string
		status int
		phase  string
	}{
		{"bad json", "/api/export", "{", http.StatusBadRequest, ""},
		{"bad format", "/api/export?format=pdf", tableBody, http.StatusBadRequest, ""},
		{"bad filter", "/api/export?header_filter=name+%2B", tableBody, http.StatusBadRequest, "config"},
		{"no columns", "/api/export", `{"columns":[],"rows":[]}`, http.StatusBadRequest, "schema"},
		{"duplicate title", "/api/export", `{"columns":[{"name":"a"},{"name":"b","title":"a"}],"rows":[]}`, http.StatusBadRequest, "schema"},
		{"bad cell", "/api/export", `{"columns":[{"name":"n","type":"number"}],"rows":[["abc"]]}`, http.StatusUnprocessableEntity, "row"},
		{"upload disabled", "/api/export?upload=true", tableBody, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(engine, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var res map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			if tt.phase != "" {
				assert.Equal(t, tt.phase, res["phase"])
			}
		})
	}
}

func TestExportUpload(t *testing.T) {
	fs := &memoryStorage{files: map[string]string{}}
	var locked []string
	engine := newTestEngine(WithStorage(fs), WithLockers(func(key string) locker.Locker {
		return nopLocker{keys: &locked, key: key}
	}))

	w := do(engine, http.MethodPost, "/api/export?format=csv&filename=users.csv&upload=true", tableBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res uploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "http://cdn.local/exports/users.csv", res.Url)
	assert.Equal(t, 3, res.Rows)
	assert.Contains(t, fs.files["exports/users.csv"], "carol")
	assert.Equal(t, []string{"exports/users.csv"}, locked)
}

func TestExportHeader(t *testing.T) {
	engine := newTestEngine()
	w := do(engine, http.MethodPost, "/api/export/header", `{"titles":["编号","姓名"],"filename":"template"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "template.xlsx")

	w = do(engine, http.MethodPost, "/api/export/header", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJwtAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	j := jwt.NewJwt(jwt.Config{TokenExpire: time.Minute, RefreshTokenExpire: time.Hour, Key: "secret"})
	engine := gin.New()
	engine.GET("/me", JwtAuth(j), func(c *gin.Context) {
		c.JSON(http.StatusOK, CurrentUser(c))
	})

	token, _, err := j.CreateToken(jwt.TokenPayload{UserId: 7, Username: "alice"})
	require.NoError(t, err)
	w := do(engine, http.MethodGet, "/me", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	refresh, _, err := j.CreateRefreshToken(jwt.TokenPayload{UserId: 7})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/me", "", "Authorization", "Bearer "+refresh).Code)
	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(engine, http.MethodGet, "/me", "", "Authorization", "Bearer abc").Code)
}
