// Package web serves the committed receipts over HTTP: an HTML list, per-transaction JSON,
// printable receipt pages, PDF downloads and an XLSX export.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/alapierre/go-etims-receipts/etims/batch"
	"github.com/alapierre/go-etims-receipts/etims/export"
	"github.com/alapierre/go-etims-receipts/etims/metrics"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/alapierre/go-etims-receipts/etims/pdf"
	"github.com/alapierre/go-etims-receipts/etims/store"
	"github.com/alapierre/go-etims-receipts/etims/util"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.web")

//go:embed templates/*.html
var templateFS embed.FS

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Status reports the state of the batch processor.
type Status interface {
	State() batch.State
	LastResult() *batch.Result
}

type Trader struct {
	Name string
	PIN  string
}

type Options struct {
	Store  *store.Store
	Status Status
	// Renderer may be nil; PDF downloads then answer 503.
	Renderer pdf.Renderer
	Metrics  *metrics.Recorder
	Trader   Trader
}

type Server struct {
	opts    Options
	index   *template.Template
	receipt *template.Template
}

func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("web: store is required")
	}

	index, err := loadTemplate("index.html")
	if err != nil {
		return nil, err
	}
	receipt, err := loadTemplate("receipt.html")
	if err != nil {
		return nil, err
	}

	return &Server{opts: opts, index: index, receipt: receipt}, nil
}

func loadTemplate(name string) (*template.Template, error) {
	raw, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, errors.Wrapf(err, "read template %s", name)
	}
	tmpl, err := util.ParseTemplate(name, string(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "parse template %s", name)
	}
	return tmpl, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger())

	r.GET("/", s.handleIndex)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	r.GET("/export.xlsx", s.handleExport)

	tx := r.Group("/transaction/:id")
	tx.GET("", s.handleTransaction)
	tx.GET("/print", s.handlePrint)
	tx.GET("/pdf", s.handlePDF)

	return r
}

type indexView struct {
	Trader   Trader
	Receipts []model.Receipt
	Batch    *batch.Result
}

type receiptView struct {
	Trader    Trader
	Receipt   model.Receipt
	Printable bool
}

func (s *Server) handleIndex(c *gin.Context) {
	view := indexView{Trader: s.opts.Trader, Receipts: s.opts.Store.List()}
	if s.opts.Status != nil {
		view.Batch = s.opts.Status.LastResult()
	}
	s.html(c, s.index, view)
}

func (s *Server) handleTransaction(c *gin.Context) {
	r, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handlePrint(c *gin.Context) {
	r, ok := s.lookup(c)
	if !ok {
		return
	}
	s.html(c, s.receipt, receiptView{Trader: s.opts.Trader, Receipt: r, Printable: true})
}

func (s *Server) handlePDF(c *gin.Context) {
	r, ok := s.lookup(c)
	if !ok {
		return
	}
	if s.opts.Renderer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PDF rendering is not available"})
		return
	}

	page, err := util.MergeTemplate(s.receipt, receiptView{Trader: s.opts.Trader, Receipt: r})
	if err != nil {
		s.internalError(c, errors.Wrap(err, "render receipt"))
		return
	}

	out, err := s.opts.Renderer.RenderPDF(c.Request.Context(), string(page))
	if err != nil {
		_ = c.Error(errors.Wrapf(err, "pdf for %s", r.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "PDF generation failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+PDFFilename(r)+`"`)
	c.Data(http.StatusOK, "application/pdf", out)
}

// PDFFilename is the download name of a receipt PDF.
func PDFFilename(r model.Receipt) string {
	return "receipt-" + r.ReceiptNumber + ".pdf"
}

func (s *Server) handleExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, s.opts.Store.List()); err != nil {
		s.internalError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

type batchStatus struct {
	State     string     `json:"state"`
	ID        string     `json:"id,omitempty"`
	Finished  *time.Time `json:"finished,omitempty"`
	Committed int        `json:"committed"`
	Failed    int        `json:"failed"`
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	bs := batchStatus{State: batch.Idle.String()}

	if s.opts.Status != nil {
		st := s.opts.Status.State()
		bs.State = st.String()
		if st == batch.Failed {
			// the previous snapshot is still served
			status = "degraded"
		}
		if last := s.opts.Status.LastResult(); last != nil {
			bs.ID = last.BatchID
			bs.Finished = &last.Finished
			bs.Committed = last.Committed
			bs.Failed = len(last.Failures)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"receipts": s.opts.Store.Len(),
		"batch":    bs,
	})
}

func (s *Server) lookup(c *gin.Context) (model.Receipt, bool) {
	r, ok := s.opts.Store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	}
	return r, ok
}

func (s *Server) html(c *gin.Context, tmpl *template.Template, view any) {
	page, err := util.MergeTemplate(tmpl, view)
	if err != nil {
		s.internalError(c, errors.Wrapf(err, "render %s", tmpl.Name()))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
