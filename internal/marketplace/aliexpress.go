package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bot-cupons/config"
	"bot-cupons/internal/models"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	methodProductQuery = "aliexpress.affiliate.product.query"
	methodLinkGenerate = "aliexpress.affiliate.link.generate"

	requestTimeout = 20 * time.Second
)

// Ordem de preferência dos campos de preço na resposta da API
var priceFields = []string{
	"target_sale_price",
	"target_original_price",
	"site_price",
	"originalPrice",
	"salePrice",
}

// AliExpressOptions reúne as credenciais e dependências do cliente
type AliExpressOptions struct {
	AppKey     string
	AppSecret  string
	TrackingID string
	GatewayURL string
	SignMethod string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// AliExpressClient implementa Client para a AliExpress Affiliate API
type AliExpressClient struct {
	appKey     string
	trackingID string
	gatewayURL string
	signer     Signer
	client     *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewAliExpressClient cria uma nova instância do cliente da AliExpress
func NewAliExpressClient(opts AliExpressOptions) (*AliExpressClient, error) {
	if opts.AppKey == "" || opts.AppSecret == "" {
		return nil, &config.ConfigError{Field: "ALI_APP_KEY/ALI_APP_SECRET", Err: errors.New("credenciais da AliExpress não configuradas")}
	}
	if opts.TrackingID == "" {
		return nil, &config.ConfigError{Field: "ALI_TRACKING_ID", Err: errors.New("tracking id não configurado")}
	}

	signer, err := NewSigner(opts.SignMethod, opts.AppSecret)
	if err != nil {
		return nil, &config.ConfigError{Field: "ALI_SIGN_METHOD", Err: err}
	}

	gateway := opts.GatewayURL
	if gateway == "" {
		gateway = config.DefaultGatewayURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &AliExpressClient{
		appKey:     opts.AppKey,
		trackingID: opts.TrackingID,
		gatewayURL: gateway,
		signer:     signer,
		client:     httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// SearchProducts busca produtos por palavras-chave e/ou categoria
func (a *AliExpressClient) SearchProducts(ctx context.Context, category models.Category, limit int) ([]models.Product, error) {
	params := map[string]string{
		"keywords":    category.Keywords,
		"page_size":   strconv.Itoa(limit),
		"tracking_id": a.trackingID,
	}
	if category.CategoryID != "" {
		params["category_ids"] = category.CategoryID
	}

	raw, err := a.request(ctx, methodProductQuery, params)
	if err != nil {
		return nil, err
	}

	result, err := respResult(raw, "aliexpress_affiliate_product_query_response")
	if err != nil {
		return nil, err
	}

	items := listField(result, "products", "product")
	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		p, ok := extractProduct(item)
		if !ok {
			continue
		}
		products = append(products, p)
	}

	a.logger.Debug("produtos retornados pela AliExpress",
		zap.String("category", category.Name),
		zap.Int("raw", len(items)),
		zap.Int("usable", len(products)),
	)
	return products, nil
}

// AffiliateLink converte a URL do produto em link de afiliado.
// Retorna "" quando a API não gera nenhum link.
func (a *AliExpressClient) AffiliateLink(ctx context.Context, productURL string) (string, error) {
	params := map[string]string{
		"tracking_id":         a.trackingID,
		"source_values":       productURL,
		"promotion_link_type": "0",
	}

	raw, err := a.request(ctx, methodLinkGenerate, params)
	if err != nil {
		return "", err
	}

	result, err := respResult(raw, "aliexpress_affiliate_link_generate_response")
	if err != nil {
		return "", err
	}

	links := listField(result, "promotion_links", "promotion_link")
	if len(links) == 0 {
		return "", nil
	}
	if promo := firstString(links[0], "promotion_link", "promotion_url", "promotionUrl"); promo != "" {
		return promo, nil
	}
	return productURL, nil
}

func (a *AliExpressClient) request(ctx context.Context, method string, apiParams map[string]string) (map[string]any, error) {
	params := map[string]string{
		"app_key":     a.appKey,
		"method":      method,
		"format":      "json",
		"sign_method": a.signer.Method(),
		"timestamp":   a.now().Format("2006-01-02 15:04:05"),
		"v":           "2.0",
	}
	for k, v := range apiParams {
		params[k] = v
	}
	params["sign"] = a.signer.Sign(params)

	form := url.Values{}
	for k, v := range params {
		if v != "" {
			form.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.gatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: status code %d: %s", ErrUpstream, method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %s: resposta inválida: %v", ErrUpstream, method, err)
	}

	if errResp, ok := raw["error_response"].(map[string]any); ok {
		return nil, fmt.Errorf("%w: %s: código %s: %s", ErrUpstream, method,
			firstString(errResp, "code"), firstString(errResp, "sub_msg", "msg"))
	}
	return raw, nil
}

// respResult navega até resp_result.result, validando resp_code quando presente
func respResult(raw map[string]any, responseKey string) (map[string]any, error) {
	resp, ok := raw[responseKey].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: resposta sem %s", ErrUpstream, responseKey)
	}
	respResult, ok := resp["resp_result"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s sem resp_result", ErrUpstream, responseKey)
	}

	if code := firstString(respResult, "resp_code"); code != "" && code != "200" {
		return nil, fmt.Errorf("%w: resp_code %s: %s", ErrUpstream, code, firstString(respResult, "resp_msg"))
	}

	result, _ := respResult["result"].(map[string]any)
	return result, nil
}

// listField aceita tanto {"products": [...]} quanto {"products": {"product": [...]}}
func listField(m map[string]any, key, inner string) []map[string]any {
	var list []any
	switch v := m[key].(type) {
	case []any:
		list = v
	case map[string]any:
		list, _ = v[inner].([]any)
	}

	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

func extractProduct(item map[string]any) (models.Product, bool) {
	p := models.Product{
		ID:            firstString(item, "product_id", "productId"),
		Title:         cleanTitle(firstString(item, "product_title", "productTitle")),
		OriginalPrice: extractPrice(item),
		ImageURL:      firstString(item, "product_main_image_url", "imageUrl"),
		ProductURL:    firstString(item, "product_detail_url", "productUrl"),
		AffiliateURL:  firstString(item, "promotion_link", "promotionUrl"),
	}
	if p.ImageURL == "" {
		all := firstString(item, "allImageUrls")
		p.ImageURL = strings.TrimSpace(strings.Split(all, "|")[0])
	}

	if p.ID == "" || p.Title == "" || p.ProductURL == "" {
		return models.Product{}, false
	}
	return p, true
}

// extractPrice retorna o primeiro campo de preço válido, ou 0
func extractPrice(item map[string]any) float64 {
	for _, f := range priceFields {
		v := firstString(item, f)
		if v == "" {
			continue
		}
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price <= 0 {
			continue
		}
		return price
	}
	return 0
}

// cleanTitle remove marcação HTML (a busca destaca palavras com <font>/<b>)
func cleanTitle(title string) string {
	if !strings.ContainsAny(title, "<&") {
		return strings.TrimSpace(title)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(title))
	if err != nil {
		return strings.TrimSpace(title)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// firstString retorna o primeiro valor não vazio entre as chaves, como string
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}
