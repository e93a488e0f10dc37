package http

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opdss/tabexport/contracts/excel"
	"github.com/opdss/tabexport/contracts/locker"
	"github.com/opdss/tabexport/excel/export"
	"go.uber.org/zap"
)

// ExportConfig 导出接口的默认参数
type ExportConfig struct {
	MaxRowsPerPage  int           `help:"单页最大行数,小于等于0不分页" default:"1000000"`
	SheetNamePrefix string        `help:"页名称前缀" default:"Sheet"`
	UploadPrefix    string        `help:"上传文件的目录" default:"exports"`
	LockWait        time.Duration `help:"上传时等待锁的时间" default:"30s"`
}

// ExportHandler 表格导出接口
type ExportHandler struct {
	config  ExportConfig
	logger  *zap.Logger
	storage excel.FileStorage
	lockers func(key string) locker.Locker
}

type ExportOption func(h *ExportHandler)

// WithStorage 设置后支持 upload=true 上传到存储
func WithStorage(fs excel.FileStorage) ExportOption {
	return func(h *ExportHandler) {
		h.storage = fs
	}
}

// WithLockers 上传同一个文件时加锁
func WithLockers(fn func(key string) locker.Locker) ExportOption {
	return func(h *ExportHandler) {
		h.lockers = fn
	}
}

func NewExportHandler(logger *zap.Logger, conf ExportConfig, opts ...ExportOption) *ExportHandler {
	h := &ExportHandler{config: conf, logger: logger}
	for i := range opts {
		opts[i](h)
	}
	return h
}

// Register 注册路由
//
//	POST /export?format=xlsx|csv&max_rows_per_page=&sheet_prefix=&filename=&header_filter=&upload=
//	POST /export/header
func (h *ExportHandler) Register(r gin.IRouter) {
	r.POST("/export", h.Export)
	r.POST("/export/header", h.Header)
}

type exportQuery struct {
	Format         string `form:"format"`
	MaxRowsPerPage *int   `form:"max_rows_per_page"`
	SheetPrefix    string `form:"sheet_prefix"`
	Filename       string `form:"filename"`
	HeaderFilter   string `form:"header_filter"`
	Upload         bool   `form:"upload"`
}

type headerRequest struct {
	Titles    []string `json:"titles" binding:"required"`
	SheetName string   `json:"sheet_name"`
	Filename  string   `json:"filename"`
}

// uploadResponse upload=true 时返回
type uploadResponse struct {
	Url      string `json:"url"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Rows     int    `json:"rows"`
}

// Export 请求体为 export.TablePayload
func (h *ExportHandler) Export(c *gin.Context) {
	var q exportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	var payload export.TablePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	table, err := payload.Table()
	if err != nil {
		h.fail(c, err)
		return
	}

	opts, err := h.options(q)
	if err != nil {
		h.fail(c, err)
		return
	}

	var res *export.Result
	switch q.Format {
	case "", export.ExcelSuffix:
		res, err = export.ToExcel(c.Request.Context(), table, opts...)
	case export.CsvSuffix:
		res, err = export.ToCsv(c.Request.Context(), table, opts...)
	default:
		abort(c, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", q.Format))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if q.Upload {
		h.upload(c, res)
		return
	}
	h.send(c, res)
}

// Header 只导出表头，用作导入模板
func (h *ExportHandler) Header(c *gin.Context) {
	var req headerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	res, err := export.HeaderToExcel(req.Titles, req.SheetName, export.WithFilename(req.Filename), export.WithLogger(h.logger))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.send(c, res)
}

func (h *ExportHandler) options(q exportQuery) ([]export.Option, error) {
	maxRows := h.config.MaxRowsPerPage
	if q.MaxRowsPerPage != nil {
		maxRows = *q.MaxRowsPerPage
	}
	prefix := h.config.SheetNamePrefix
	if q.SheetPrefix != "" {
		prefix = q.SheetPrefix
	}
	opts := []export.Option{
		export.WithMaxRowsPerPage(maxRows),
		export.WithSheetNamePrefix(prefix),
		export.WithFilename(q.Filename),
		export.WithLogger(h.logger),
	}
	if q.HeaderFilter != "" {
		filter, err := export.ExprFilter(q.HeaderFilter)
		if err != nil {
			return nil, err
		}
		opts = append(opts, export.WithHeaderFilter(filter))
	}
	return opts, nil
}

func (h *ExportHandler) send(c *gin.Context, res *export.Result) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	c.Header("X-Export-Pages", strconv.Itoa(res.Pages))
	c.Header("X-Export-Rows", strconv.Itoa(res.Rows))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

func (h *ExportHandler) upload(c *gin.Context, res *export.Result) {
	if h.storage == nil {
		abort(c, http.StatusBadRequest, "upload is not enabled")
		return
	}
	key := res.Filename
	if h.config.UploadPrefix != "" {
		key = h.config.UploadPrefix + "/" + key
	}
	opts := []export.UploadOption{export.WithUploadKey(key)}
	if h.lockers != nil {
		opts = append(opts, export.WithUploadLocker(h.lockers(key), h.config.LockWait))
	}
	url, err := res.Upload(c.Request.Context(), h.storage, opts...)
	if err != nil {
		h.logger.Error("upload export", zap.String("key", key), zap.Error(err))
		abort(c, http.StatusBadGateway, "upload failed")
		return
	}
	c.JSON(http.StatusOK, uploadResponse{Url: url, Filename: res.Filename, Pages: res.Pages, Rows: res.Rows})
}

// fail 按错误阶段返回状态码
func (h *ExportHandler) fail(c *gin.Context, err error) {
	phase := export.Phase(err)
	status := http.StatusInternalServerError
	switch phase {
	case "config", "schema":
		status = http.StatusBadRequest
	case "row":
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("export failed", zap.String("phase", phase), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "phase": phase})
}
