package marketplace

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Signer assina os parâmetros de uma requisição à API do fornecedor
type Signer interface {
	Method() string
	Sign(params map[string]string) string
}

// MD5Signer implementa sign = UPPER(MD5(secret + k1v1k2v2... + secret))
type MD5Signer struct {
	Secret string
}

func (s MD5Signer) Method() string { return "md5" }

func (s MD5Signer) Sign(params map[string]string) string {
	sum := md5.Sum([]byte(s.Secret + concatSorted(params) + s.Secret))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// HMACSigner implementa sign = UPPER(HMAC-MD5(secret, k1v1k2v2...))
type HMACSigner struct {
	Secret string
}

func (s HMACSigner) Method() string { return "hmac" }

func (s HMACSigner) Sign(params map[string]string) string {
	mac := hmac.New(md5.New, []byte(s.Secret))
	mac.Write([]byte(concatSorted(params)))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// NewSigner escolhe a estratégia de assinatura pelo sign_method
func NewSigner(method, secret string) (Signer, error) {
	switch strings.ToLower(method) {
	case "", "md5":
		return MD5Signer{Secret: secret}, nil
	case "hmac", "hmac-md5":
		return HMACSigner{Secret: secret}, nil
	default:
		return nil, fmt.Errorf("método de assinatura não suportado: %s", method)
	}
}

// concatSorted concatena chave+valor em ordem alfabética, ignorando valores vazios
// e o próprio "sign"
func concatSorted(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	return b.String()
}
