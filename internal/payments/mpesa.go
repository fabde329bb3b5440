package payments

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"foodhub/internal/models"
)

const (
	mpesaTimestampLayout = "20060102150405"
	// Daraja result code for a push the customer dismissed.
	mpesaResultCancelled = 1032
)

var ErrInvalidPhone = errors.New("invalid mobile number")

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	// CallbackToken is appended to CallbackURL as ?token= so the callback
	// handler can tell Daraja apart from anyone else who learns a
	// CheckoutRequestID.
	CallbackToken string
}

// MpesaGateway talks to the Daraja STK push API.
type MpesaGateway struct {
	cfg  MpesaConfig
	http *http.Client
	now  func() time.Time
}

func NewMpesaGateway(cfg MpesaConfig, httpClient *http.Client) *MpesaGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &MpesaGateway{cfg: cfg, http: httpClient, now: time.Now}
}

func (g *MpesaGateway) Method() string { return "mpesa" }

// NormalizePhone converts 07XXXXXXXX, +2547XXXXXXXX and 2547XXXXXXXX to
// the 254 form Daraja expects.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.TrimPrefix(p, "+")
	switch {
	case strings.HasPrefix(p, "0") && len(p) == 10:
		p = "254" + p[1:]
	case (strings.HasPrefix(p, "7") || strings.HasPrefix(p, "1")) && len(p) == 9:
		p = "254" + p
	}
	if len(p) != 12 || !strings.HasPrefix(p, "254") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	if _, err := strconv.ParseUint(p, 10, 64); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	return p, nil
}

// wholeUnits rounds up to whole shillings; STK push takes no cents.
func wholeUnits(m models.Money) int64 {
	return m.Decimal().Ceil().IntPart()
}

type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	var out mpesaTokenResponse
	if err := g.do(req, &out); err != nil {
		return "", fmt.Errorf("mpesa oauth: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("mpesa oauth: empty access token")
	}
	return out.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

func (g *MpesaGateway) Initiate(ctx context.Context, req Request) (*Session, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	callbackURL, err := WithCallbackToken(g.cfg.CallbackURL, g.cfg.CallbackToken)
	if err != nil {
		return nil, err
	}

	timestamp := g.now().Format(mpesaTimestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(g.cfg.ShortCode + g.cfg.Passkey + timestamp))

	reference := req.OrderID
	if len(reference) > 12 {
		reference = reference[len(reference)-12:]
	}

	body, err := json.Marshal(stkPushRequest{
		BusinessShortCode: g.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            wholeUnits(req.Total),
		PartyA:            phone,
		PartyB:            g.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       callbackURL,
		AccountReference:  reference,
		TransactionDesc:   "Food order " + reference,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	var stk models.StkPush
	if err := g.do(httpReq, &stk); err != nil {
		return nil, fmt.Errorf("mpesa stk push: %w", err)
	}
	if stk.ResponseCode != "0" || stk.CheckoutRequestID == "" {
		return nil, fmt.Errorf("mpesa stk push rejected: code=%s desc=%s", stk.ResponseCode, stk.ResponseDescription)
	}
	return &Session{CorrelationID: stk.CheckoutRequestID, StkPush: &stk}, nil
}

// WithCallbackToken sets the token query parameter on rawURL.
func WithCallbackToken(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid mpesa callback url: %w", err)
	}
	if token == "" {
		return u.String(), nil
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CallbackTokenMatches compares in constant time. An empty expected token
// never matches, so an unconfigured deployment accepts no callbacks.
func CallbackTokenMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func (g *MpesaGateway) do(req *http.Request, out interface{}) error {
	res, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", res.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

// MpesaCallback is the body Daraja posts to CallBackURL.
type MpesaCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseMpesaCallback returns the correlation id (CheckoutRequestID) and the
// outcome carried by a Daraja STK callback.
func ParseMpesaCallback(raw []byte) (string, Outcome, error) {
	var cb MpesaCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return "", Outcome{}, fmt.Errorf("decode mpesa callback: %w", err)
	}
	stk := cb.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return "", Outcome{}, errors.New("mpesa callback missing CheckoutRequestID")
	}

	outcome := Outcome{
		Provider:   "mpesa",
		ResultCode: stk.ResultCode,
		ResultDesc: stk.ResultDesc,
	}
	switch stk.ResultCode {
	case 0:
		outcome.Status = OutcomeSuccess
	case mpesaResultCancelled:
		outcome.Status = OutcomeCancelled
	default:
		outcome.Status = OutcomeFailed
	}

	if stk.CallbackMetadata != nil {
		for _, item := range stk.CallbackMetadata.Item {
			value := strings.Trim(string(item.Value), `"`)
			switch item.Name {
			case "Amount":
				if d, err := decimal.NewFromString(value); err == nil {
					outcome.Amount = models.MoneyFromDecimal(d)
				}
			case "MpesaReceiptNumber":
				outcome.ReceiptNumber = value
			case "TransactionDate":
				outcome.TransactionDate = value
			case "PhoneNumber":
				outcome.PhoneNumber = value
			}
		}
	}
	return stk.CheckoutRequestID, outcome, nil
}
