package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"kodisha_app/internal/apperrors"
)

// DarajaGateway is the live gateway client. It signs requests with a cached
// bearer token and talks to the provider's OAuth, push-initiate and
// status-query endpoints over HTTPS.
type DarajaGateway struct {
	cfg     MpesaConfig
	session *GatewaySession
	client  *http.Client
}

func NewDarajaGateway(cfg MpesaConfig) *DarajaGateway {
	return &DarajaGateway{
		cfg:     cfg,
		session: NewGatewaySession(),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *DarajaGateway) CallbackCapable() bool {
	return true
}

type darajaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// Authenticate returns a valid bearer token, refreshing through the session's
// single-flight guard when the cache is stale
func (g *DarajaGateway) Authenticate(ctx context.Context) (string, error) {
	return g.session.Token(ctx, g.fetchToken)
}

func (g *DarajaGateway) fetchToken(ctx context.Context) (string, time.Duration, error) {
	url := g.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp darajaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}

	ttl := time.Hour
	if secs, err := strconv.Atoi(tokenResp.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	return tokenResp.AccessToken, ttl, nil
}

// password builds the provider's request signature: the shortcode, passkey
// and timestamp concatenated and base64 encoded
func (g *DarajaGateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.cfg.ShortCode + g.cfg.Passkey + timestamp))
}

type darajaPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage"`
}

func (g *DarajaGateway) STKPush(ctx context.Context, req PushRequest) (*PushAck, error) {
	req, amount, err := validatePushRequest(req, g.cfg.MaxAmount)
	if err != nil {
		return nil, err
	}

	token, err := g.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": g.cfg.ShortCode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            req.Phone,
		"PartyB":            g.cfg.ShortCode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.Description,
	}

	var pushResp darajaPushResponse
	if err := g.post(ctx, token, "/mpesa/stkpush/v1/processrequest", payload, &pushResp); err != nil {
		return nil, err
	}

	if pushResp.ResponseCode != "0" {
		msg := pushResp.ResponseDescription
		if msg == "" {
			msg = pushResp.ErrorMessage
		}
		if msg == "" {
			msg = "push initiation rejected"
		}
		return nil, apperrors.New(apperrors.KindGateway, msg)
	}

	return &PushAck{
		MerchantRequestID: pushResp.MerchantRequestID,
		CheckoutRequestID: pushResp.CheckoutRequestID,
		CustomerMessage:   pushResp.CustomerMessage,
	}, nil
}

type darajaQueryResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        string `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	ReceiptNumber     string `json:"MpesaReceiptNumber"`
	TransactionDate   string `json:"TransactionDate"`
	PhoneNumber       string `json:"PhoneNumber"`
	Balance           string `json:"Balance"`
}

func (g *DarajaGateway) QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error) {
	token, err := g.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": g.cfg.ShortCode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var queryResp darajaQueryResponse
	if err := g.post(ctx, token, "/mpesa/stkpushquery/v1/query", payload, &queryResp); err != nil {
		return nil, err
	}

	resultCode, err := strconv.Atoi(queryResp.ResultCode)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGateway, "status query returned unparseable result code", err)
	}

	return &StatusResult{
		MerchantRequestID: queryResp.MerchantRequestID,
		CheckoutRequestID: queryResp.CheckoutRequestID,
		ResultCode:        resultCode,
		ResultDesc:        queryResp.ResultDesc,
		ReceiptNumber:     queryResp.ReceiptNumber,
		TransactionDate:   queryResp.TransactionDate,
		Phone:             queryResp.PhoneNumber,
		Balance:           queryResp.Balance,
	}, nil
}

// post sends an authenticated JSON request and decodes the response into out.
// Transport failures and timeouts surface as transient GatewayError.
func (g *DarajaGateway) post(ctx context.Context, token, endpoint string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.KindGateway, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+endpoint, bytes.NewBuffer(data))
	if err != nil {
		return apperrors.Wrap(apperrors.KindGateway, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindGateway, "gateway request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.KindGateway, "failed to read gateway response", err)
	}

	if resp.StatusCode >= 400 {
		// The provider reports errors as {requestId, errorCode, errorMessage}
		var gwErr struct {
			ErrorMessage string `json:"errorMessage"`
		}
		_ = json.Unmarshal(body, &gwErr)
		msg := gwErr.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return apperrors.New(apperrors.KindGateway, msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(apperrors.KindGateway, "failed to decode gateway response", err)
	}
	return nil
}
