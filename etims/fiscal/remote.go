package fiscal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/alapierre/go-etims-receipts/etims/itemcode"
	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/alapierre/go-etims-receipts/etims/util"
	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	salesDateLayout = "20060102150405"
	maxResponseBody = 1 << 20

	paymentTypeCash     = "01"
	salesTypeNormal     = "N"
	receiptTypeSale     = "S"
	salesStatusApproved = "02"
	defaultCurrency     = "KES"
)

var DefaultSuccessCodes = []string{"SUCCESS", "SUCCES"}

type RemoteOptions struct {
	Endpoint   string
	AuthToken  string
	HTTPClient *http.Client
	Items      itemcode.Table

	// SuccessCodes are the business statusCode values accepted as success, compared case-insensitively.
	SuccessCodes  []string
	InvoicePrefix string
	Currency      string

	// RateLimit in requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// RemoteFiscaliser posts one invoice per line to the fiscalisation API. Requests are never retried.
type RemoteFiscaliser struct {
	httpClient   *http.Client
	endpoint     string
	auth         string
	items        itemcode.Table
	limiter      *rate.Limiter
	successCodes map[string]struct{}
	prefix       string
	currency     string
}

func NewRemote(opts RemoteOptions) (*RemoteFiscaliser, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("fiscalisation endpoint is required")
	}

	f := &RemoteFiscaliser{
		httpClient:   opts.HTTPClient,
		endpoint:     opts.Endpoint,
		auth:         opts.AuthToken,
		items:        opts.Items,
		successCodes: map[string]struct{}{},
		prefix:       opts.InvoicePrefix,
		currency:     opts.Currency,
	}
	if f.httpClient == nil {
		f.httpClient = http.DefaultClient
	}
	if f.items == nil {
		f.items = itemcode.Defaults()
	}
	if f.currency == "" {
		f.currency = defaultCurrency
	}

	codes := opts.SuccessCodes
	if len(codes) == 0 {
		codes = DefaultSuccessCodes
	}
	for _, c := range codes {
		f.successCodes[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return f, nil
}

func (f *RemoteFiscaliser) Mode() Mode {
	return ModeRemote
}

func (f *RemoteFiscaliser) Fiscalise(ctx context.Context, line *model.RawLine) (*model.FiscalResult, error) {
	code, ok := f.items.Lookup(line.Product)
	if !ok {
		return nil, &etims.UnmappedProductError{Product: line.Product}
	}

	req, err := f.buildRequest(line, code)
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "wait for rate limiter")
		}
	}

	log := etims.LoggerFromContext(ctx, logger).WithField("transaction_id", line.TransactionID)
	log.Debugf("Sending invoice %s to fiscalisation API", req.TraderInvoiceNo)

	status, body, err := f.post(ctx, encodeInvoiceRequest(req))
	if err != nil {
		return nil, err
	}

	res, decodeErr := decodeInvoiceResponse(body)

	if status < 200 || status > 299 {
		rejected := &etims.FiscalisationRejectedError{
			StatusCode: status,
			Body:       body,
			Err:        validate.UnexpectedStatusCode(status),
		}
		if decodeErr == nil {
			rejected.BusinessStatus = res.StatusCode
			rejected.Message = res.Message
		}
		return nil, rejected
	}

	if decodeErr != nil {
		return nil, &etims.FiscalisationRejectedError{StatusCode: status, Body: body, Message: "malformed response", Err: decodeErr}
	}

	if !f.isSuccess(res.StatusCode) {
		return nil, &etims.FiscalisationRejectedError{
			StatusCode:     status,
			BusinessStatus: res.StatusCode,
			Message:        res.Message,
			Body:           body,
		}
	}

	if res.Data == nil || res.Data.SCUReceiptNo == "" {
		return nil, &etims.FiscalisationRejectedError{
			StatusCode:     status,
			BusinessStatus: res.StatusCode,
			Message:        "response carries no receipt number",
			Body:           body,
		}
	}

	log.Debugf("Fiscalised invoice %s, receipt no %s", req.TraderInvoiceNo, res.Data.SCUReceiptNo)

	return &model.FiscalResult{
		ReceiptNumber:   res.Data.SCUReceiptNo,
		VAT:             res.Data.TotalTaxAmount,
		SubTotal:        res.Data.TotalTaxableAmount,
		InternalData:    res.Data.InternalData,
		Signature:       res.Data.Signature,
		VerificationURL: res.Data.InvoiceVerificationURL,
		SCUID:           res.Data.SCDCID,
	}, nil
}

func (f *RemoteFiscaliser) buildRequest(line *model.RawLine, itemCode string) (*invoiceRequest, error) {
	sold, err := line.SaleTime()
	if err != nil {
		return nil, &etims.MalformedLineError{Index: line.Index, TransactionID: line.TransactionID, Field: "Receipt_date", Err: err}
	}

	return &invoiceRequest{
		TraderInvoiceNo: f.prefix + line.TransactionID,
		TotalAmount:     line.TotalPrice,
		PaymentType:     paymentTypeCash,
		SalesTypeCode:   salesTypeNormal,
		ReceiptTypeCode: receiptTypeSale,
		SalesStatusCode: salesStatusApproved,
		SalesDate:       sold.Format(salesDateLayout),
		Currency:        f.currency,
		ExchangeRate:    1,
		SalesItems: []salesItem{{
			ItemCode:       itemCode,
			Qty:            line.ExactQuantity(),
			Pkg:            0,
			UnitPrice:      line.BasePrice,
			Amount:         line.TotalPrice,
			DiscountAmount: decimal.Zero,
		}},
	}, nil
}

func (f *RemoteFiscaliser) post(ctx context.Context, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if f.auth != "" {
		req.Header.Set("Authorization", f.auth)
	}

	if util.HttpTraceEnabled() {
		logger.Debugf("POST %s\n%s", f.endpoint, payload)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "send invoice")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "read response body")
	}

	if util.HttpTraceEnabled() {
		logger.Debugf("HTTP %d\n%s", resp.StatusCode, body)
	}
	return resp.StatusCode, body, nil
}

func (f *RemoteFiscaliser) isSuccess(status string) bool {
	_, ok := f.successCodes[strings.ToUpper(strings.TrimSpace(status))]
	return ok
}
