package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ostrab/kpdl/internal/ui"
)

// scriptedViewer plays back a sequence of ticket modals and records every
// click and navigation.
type scriptedViewer struct {
	modals   []*ticketModal
	location string

	clicks    []string
	navigated []string
}

func (v *scriptedViewer) Evaluate(_ context.Context, js string, out any) error {
	if js == ticketModalScript {
		p := out.(**ticketModal)
		*p = nil
		if len(v.modals) > 0 {
			*p = v.modals[0]
			v.modals = v.modals[1:]
		}
	}
	return nil
}

func (v *scriptedViewer) Navigate(_ context.Context, url string) error {
	v.navigated = append(v.navigated, url)
	return nil
}

func (v *scriptedViewer) WaitIdle(context.Context, time.Duration) error { return nil }

func (v *scriptedViewer) Location(context.Context) (string, error) { return v.location, nil }

func (v *scriptedViewer) ClickByText(_ context.Context, want, _ string) (bool, error) {
	v.clicks = append(v.clicks, want)
	return false, nil
}

func (v *scriptedViewer) ClickContainingText(_ context.Context, want, _ string) (bool, error) {
	v.clicks = append(v.clicks, "contains:"+want)
	return true, nil
}

func (v *scriptedViewer) ScrollTop(context.Context) error { return nil }

type scriptedPrompter struct {
	useRental bool
	buy       bool

	rentalAsked   int
	purchaseAsked int
	gotPrice      int
	gotBalance    int
}

func (p *scriptedPrompter) ConfirmUseRental(rental, own, balance int, label string) bool {
	p.rentalAsked++
	return p.useRental
}

func (p *scriptedPrompter) ConfirmPurchase(price, balance int) bool {
	p.purchaseAsked++
	p.gotPrice = price
	p.gotBalance = balance
	return p.buy
}

func testLog() *ui.Logger { return ui.NewLoggerTo(false, io.Discard) }

func rentalModal() *ticketModal {
	return &ticketModal{
		Text:    "5화\n대여권 1\n소장권 0\n보유 300 캐시",
		Buttons: []string{"대여하기", "취소"},
	}
}

func buyModal() *ticketModal {
	return &ticketModal{
		Text:    "5화\n대여권 0\n소장권 0\n보유 500 캐시",
		Buttons: []string{"200 캐시", "충전하기"},
	}
}

func TestParseTicketModal_PriceFromButtonsNotBalanceLine(t *testing.T) {
	// the balance line precedes the price in the modal text, so a naive
	// first-match read would report 500
	info := parseTicketModal(buyModal())

	assert.Equal(t, 0, info.RentalCount)
	assert.Equal(t, 0, info.OwnCount)
	assert.Equal(t, 500, info.CashBalance)
	assert.Equal(t, 200, info.RentalPrice)
	assert.Equal(t, AccessNotPurchased, info.AccessType)
	assert.False(t, info.rentalButtonVisible)
}

func TestParseTicketModal_ThousandsSeparatorAndRentalButton(t *testing.T) {
	info := parseTicketModal(&ticketModal{
		Text:    "대여권 2\n소장권 1\n보유 1,500 캐시",
		Buttons: []string{"이용권 사용", "1,000 캐시"},
	})

	assert.Equal(t, 2, info.RentalCount)
	assert.Equal(t, 1, info.OwnCount)
	assert.Equal(t, 1500, info.CashBalance)
	assert.Equal(t, 1000, info.RentalPrice)
	assert.True(t, info.rentalButtonVisible)

	assert.Nil(t, parseTicketModal(nil))
}

func TestEnsureAccess_OpenChapter(t *testing.T) {
	v := &scriptedViewer{location: ViewerURL("50000001", "v3")}
	p := &scriptedPrompter{}

	result, err := ensureAccess(context.Background(), v,
		"50000001", "v3", "3화", p, false, false, testLog())

	assert.NoError(t, err)
	assert.Equal(t, ResultOpen, result)
	assert.Equal(t, 0, p.rentalAsked)
	assert.Equal(t, 0, p.purchaseAsked)
}

func TestEnsureAccess_DeclinedRentalSkipsWithoutPurchase(t *testing.T) {
	v := &scriptedViewer{modals: []*ticketModal{rentalModal()}}
	p := &scriptedPrompter{useRental: false}

	result, err := ensureAccess(context.Background(), v,
		"50000001", "v5", "5화", p, false, false, testLog())

	assert.NoError(t, err)
	assert.Equal(t, ResultSkipped, result)
	assert.Equal(t, 1, p.rentalAsked)
	assert.Equal(t, 0, p.purchaseAsked)
	assert.NotContains(t, v.clicks, "contains:대여")
}

func TestEnsureAccess_AcceptedRentalConsumesTicket(t *testing.T) {
	v := &scriptedViewer{
		modals:   []*ticketModal{rentalModal()},
		location: ViewerURL("50000001", "v5"),
	}
	p := &scriptedPrompter{useRental: true}

	result, err := ensureAccess(context.Background(), v,
		"50000001", "v5", "5화", p, false, false, testLog())

	assert.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)
	assert.Contains(t, v.clicks, "contains:대여")
}

func TestEnsureAccess_DeclinedPurchaseSkipsWithoutPriceClick(t *testing.T) {
	// no tickets at all: arbitration falls through to the purchase prompt
	v := &scriptedViewer{modals: []*ticketModal{buyModal(), buyModal()}}
	p := &scriptedPrompter{buy: false}

	result, err := ensureAccess(context.Background(), v,
		"50000001", "v5", "5화", p, false, false, testLog())

	assert.NoError(t, err)
	assert.Equal(t, ResultSkipped, result)
	assert.Equal(t, 1, p.purchaseAsked)
	assert.Equal(t, 200, p.gotPrice)
	assert.Equal(t, 500, p.gotBalance)
	assert.NotContains(t, v.clicks, "contains:200 캐시")
	assert.NotContains(t, v.clicks, "contains:500 캐시")
}

func TestEnsureAccess_PurchaseThenConsume(t *testing.T) {
	viewerURL := ViewerURL("50000001", "v5")
	v := &scriptedViewer{
		// purchase re-reads the modal, then re-arbitrates after the buy
		modals:   []*ticketModal{buyModal(), buyModal(), rentalModal()},
		location: viewerURL,
	}
	p := &scriptedPrompter{buy: true, useRental: true}

	result, err := ensureAccess(context.Background(), v,
		"50000001", "v5", "5화", p, false, false, testLog())

	assert.NoError(t, err)
	assert.Equal(t, ResultConsumed, result)
	assert.Contains(t, v.clicks, "contains:200 캐시")
	assert.Contains(t, v.clicks, Labels.Charge)
	assert.Contains(t, v.clicks, "contains:대여")
	assert.Contains(t, v.navigated, viewerURL)
}
