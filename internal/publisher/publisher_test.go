package publisher

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"bot-cupons/internal/coupons"
	"bot-cupons/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "🔥 عرض اليوم من AliExpress"

type fakeProducts struct {
	product models.Product
	found   bool
	err     error
	calls   int
}

func (f *fakeProducts) RandomProduct(context.Context) (models.Product, bool, error) {
	f.calls++
	return f.product, f.found, f.err
}

type sent struct {
	photo   string
	text    string
	isPhoto bool
}

type fakeMessenger struct {
	sent []sent
	err  error
}

func (f *fakeMessenger) SendText(_ context.Context, text string) error {
	f.sent = append(f.sent, sent{text: text})
	return f.err
}

func (f *fakeMessenger) SendPhotoWithCaption(_ context.Context, photoURL, caption string) error {
	f.sent = append(f.sent, sent{photo: photoURL, text: caption, isPhoto: true})
	return f.err
}

type fakeLinks struct {
	link  string
	err   error
	calls []string
}

func (f *fakeLinks) AffiliateLink(_ context.Context, productURL string) (string, error) {
	f.calls = append(f.calls, productURL)
	return f.link, f.err
}

type fakeHistory struct {
	pubs []models.Publication
	err  error
}

func (f *fakeHistory) RecordPublication(_ context.Context, pub models.Publication) error {
	f.pubs = append(f.pubs, pub)
	return f.err
}

type fakeNotifier struct {
	pubs []models.Publication
}

func (f *fakeNotifier) Notify(_ context.Context, pub models.Publication) error {
	f.pubs = append(f.pubs, pub)
	return errors.New("nats down")
}

func tierStore(ranges ...models.PriceRange) *coupons.Store {
	return coupons.New(ranges, nil)
}

var save5Tier = models.PriceRange{MinPrice: 20, MaxPrice: 30, Coupons: []models.Coupon{{Code: "SAVE5", Discount: 5}}}

func product(price float64, image string) models.Product {
	return models.Product{
		ID:            "1005",
		Title:         "Wireless Earbuds",
		OriginalPrice: price,
		ImageURL:      image,
		ProductURL:    "https://www.aliexpress.com/item/1005.html",
		AffiliateURL:  "https://s.click.aliexpress.com/e/_abc",
	}
}

func newPublisher(products ProductSource, store CouponPicker, messenger Messenger) *Publisher {
	return New(Options{
		Products:  products,
		Coupons:   store,
		Messenger: messenger,
		Prefix:    prefix,
		NewID:     func() string { return "cycle-1" },
	})
}

func TestPublishWithCoupon(t *testing.T) {
	messenger := &fakeMessenger{}
	history := &fakeHistory{}
	notifier := &fakeNotifier{}
	p := New(Options{
		Products:  &fakeProducts{product: product(27.50, "https://img/1.jpg"), found: true},
		Coupons:   tierStore(save5Tier),
		Messenger: messenger,
		History:   history,
		Notifier:  notifier,
		Prefix:    prefix,
		NewID:     func() string { return "cycle-1" },
	})

	result, err := p.Publish(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, "cycle-1", result.CycleID)
	assert.Equal(t, "1005", result.ProductID)
	assert.Equal(t, "SAVE5", result.CouponCode)
	require.NotNil(t, result.FinalPrice)
	assert.Equal(t, 22.5, *result.FinalPrice)

	require.Len(t, messenger.sent, 1)
	msg := messenger.sent[0]
	assert.True(t, msg.isPhoto)
	assert.Equal(t, "https://img/1.jpg", msg.photo)

	lines := strings.Split(msg.text, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, prefix+": Wireless Earbuds", lines[0])
	assert.Contains(t, lines[1], "27.50 دولار")
	assert.Contains(t, lines[2], "SAVE5")
	assert.Contains(t, lines[2], "خصم 5 دولار")
	assert.Equal(t, "السعر بعد الخصم: 22.50 دولار", lines[3])
	assert.Empty(t, lines[4])
	assert.Equal(t, "رابط المنتج: https://s.click.aliexpress.com/e/_abc", lines[5])

	require.Len(t, history.pubs, 1)
	assert.Equal(t, models.StatusOK, history.pubs[0].Status)
	assert.Equal(t, "SAVE5", history.pubs[0].CouponCode)
	assert.Equal(t, 22.5, history.pubs[0].FinalPrice)

	// falha do notificador não derruba o ciclo
	assert.Len(t, notifier.pubs, 1)
}

func TestPublishWithoutCoupon(t *testing.T) {
	messenger := &fakeMessenger{}
	p := newPublisher(&fakeProducts{product: product(27.50, ""), found: true}, tierStore(), messenger)

	result, err := p.Publish(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Empty(t, result.CouponCode)
	assert.Equal(t, 27.5, *result.FinalPrice)

	require.Len(t, messenger.sent, 1)
	msg := messenger.sent[0]
	assert.False(t, msg.isPhoto)

	lines := strings.Split(msg.text, "\n")
	assert.Equal(t, "لا يوجد كوبون مناسب لهذا السعر حالياً", lines[2])
	assert.Equal(t, "السعر بعد الخصم: 27.50 دولار", lines[3])
}

func TestPublishNoProduct(t *testing.T) {
	messenger := &fakeMessenger{}
	history := &fakeHistory{}
	p := New(Options{
		Products:  &fakeProducts{},
		Coupons:   tierStore(save5Tier),
		Messenger: messenger,
		History:   history,
	})

	result, err := p.Publish(context.Background())
	require.NoError(t, err)
	assert.False(t, result.OK())
	assert.Equal(t, MsgNoProducts, result.Message)
	assert.NotEmpty(t, result.CycleID)
	assert.Empty(t, messenger.sent)
	assert.Empty(t, history.pubs)
}

func TestPublishMarketplaceError(t *testing.T) {
	messenger := &fakeMessenger{}
	upstream := errors.New("gateway timeout")
	p := newPublisher(&fakeProducts{err: upstream}, tierStore(save5Tier), messenger)

	result, err := p.Publish(context.Background())
	require.ErrorIs(t, err, upstream)
	assert.Equal(t, models.StatusError, result.Status)
	assert.Equal(t, MsgSearchFailed, result.Message)
	assert.Empty(t, messenger.sent)
}

func TestPublishMessengerError(t *testing.T) {
	sendErr := errors.New("bad request: wrong file identifier")
	messenger := &fakeMessenger{err: sendErr}
	history := &fakeHistory{}
	p := New(Options{
		Products:  &fakeProducts{product: product(27.50, "https://img/1.jpg"), found: true},
		Coupons:   tierStore(save5Tier),
		Messenger: messenger,
		History:   history,
	})

	result, err := p.Publish(context.Background())
	require.ErrorIs(t, err, sendErr)
	assert.False(t, result.OK())
	assert.Equal(t, MsgSendFailed, result.Message)
	assert.Len(t, messenger.sent, 1)

	require.Len(t, history.pubs, 1)
	assert.Equal(t, models.StatusError, history.pubs[0].Status)
	assert.Contains(t, history.pubs[0].Error, "wrong file identifier")
}

func TestPublishHistoryErrorIgnored(t *testing.T) {
	p := New(Options{
		Products:  &fakeProducts{product: product(10, ""), found: true},
		Coupons:   tierStore(),
		Messenger: &fakeMessenger{},
		History:   &fakeHistory{err: errors.New("disk full")},
	})

	result, err := p.Publish(context.Background())
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestPublishResolvesAffiliateLink(t *testing.T) {
	prod := product(27.50, "")
	prod.AffiliateURL = ""

	t.Run("resolved", func(t *testing.T) {
		messenger := &fakeMessenger{}
		links := &fakeLinks{link: "https://s.click/new"}
		p := New(Options{
			Products:  &fakeProducts{product: prod, found: true},
			Coupons:   tierStore(),
			Messenger: messenger,
			Links:     links,
		})
		_, err := p.Publish(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{prod.ProductURL}, links.calls)
		assert.True(t, strings.HasSuffix(messenger.sent[0].text, "https://s.click/new"))
	})

	t.Run("no link generated", func(t *testing.T) {
		messenger := &fakeMessenger{}
		p := New(Options{
			Products:  &fakeProducts{product: prod, found: true},
			Coupons:   tierStore(),
			Messenger: messenger,
			Links:     &fakeLinks{},
		})
		_, err := p.Publish(context.Background())
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(messenger.sent[0].text, prod.ProductURL))
	})

	t.Run("failure aborts", func(t *testing.T) {
		messenger := &fakeMessenger{}
		linkErr := errors.New("signature mismatch")
		p := New(Options{
			Products:  &fakeProducts{product: prod, found: true},
			Coupons:   tierStore(),
			Messenger: messenger,
			Links:     &fakeLinks{err: linkErr},
		})
		result, err := p.Publish(context.Background())
		require.ErrorIs(t, err, linkErr)
		assert.Equal(t, MsgLinkFailed, result.Message)
		assert.Empty(t, messenger.sent)
	})

	t.Run("existing affiliate url skips resolver", func(t *testing.T) {
		links := &fakeLinks{link: "https://s.click/other"}
		p := New(Options{
			Products:  &fakeProducts{product: product(27.50, ""), found: true},
			Coupons:   tierStore(),
			Messenger: &fakeMessenger{},
			Links:     links,
		})
		_, err := p.Publish(context.Background())
		require.NoError(t, err)
		assert.Empty(t, links.calls)
	})
}

func TestPublishInvalidPriceTreatedAsZero(t *testing.T) {
	for _, price := range []float64{-3, math.NaN(), math.Inf(1)} {
		messenger := &fakeMessenger{}
		zeroTier := models.PriceRange{MinPrice: 0, MaxPrice: 1, Coupons: []models.Coupon{{Code: "FREE", Discount: 1}}}
		p := newPublisher(&fakeProducts{product: product(price, ""), found: true}, tierStore(zeroTier), messenger)

		result, err := p.Publish(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "FREE", result.CouponCode)
		assert.Equal(t, 0.0, *result.FinalPrice)
		assert.Contains(t, messenger.sent[0].text, "0.00 دولار")
	}
}
