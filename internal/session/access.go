package session

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ostrab/kpdl/internal/ui"
)

// AccessType classifies what the viewer demanded for a chapter.
type AccessType int

const (
	AccessOpen AccessType = iota
	AccessNotPurchased
	AccessExpired
	AccessPurchased
)

// AccessInfo is the parsed ticket modal.
type AccessInfo struct {
	AccessType  AccessType
	RentalCount int
	OwnCount    int
	CashBalance int
	RentalPrice int

	rentalButtonVisible bool
}

// AccessResult is the outcome of arbitration for one chapter.
type AccessResult int

const (
	ResultOpen AccessResult = iota
	ResultConsumed
	ResultSkipped
	resultNeedBuy
)

func (r AccessResult) String() string {
	switch r {
	case ResultOpen:
		return "open"
	case ResultConsumed:
		return "consumed"
	case ResultSkipped:
		return "skipped"
	default:
		return "need-buy"
	}
}

// AccessPrompter is the UI decision surface for paid chapters.
type AccessPrompter interface {
	ConfirmUseRental(rental, own, balance int, chapterLabel string) bool
	ConfirmPurchase(price, balance int) bool
}

// viewerDriver is the slice of Browser the access flow needs. Arbitration
// logic stays testable against a scripted page.
type viewerDriver interface {
	Navigate(ctx context.Context, url string) error
	WaitIdle(ctx context.Context, max time.Duration) error
	Evaluate(ctx context.Context, js string, out any) error
	Location(ctx context.Context) (string, error)
	ClickByText(ctx context.Context, want, exclude string) (bool, error)
	ClickContainingText(ctx context.Context, want, exclude string) (bool, error)
	ScrollTop(ctx context.Context) error
}

// ticketModalScript snapshots an open dialog: its full text plus the text of
// every visible button. The numbers are picked apart on the Go side. Returns
// null when no modal is open.
const ticketModalScript = `(() => {
	const dlg = document.querySelector('[role="dialog"], .modal, [class*="Modal"], [class*="modal"]');
	if (!dlg) return null;
	const text = dlg.textContent || '';
	if (!text.includes('대여') && !text.includes('소장') && !text.includes('캐시')) return null;

	const buttons = [];
	for (const el of dlg.querySelectorAll('button, [role="button"]')) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 && r.height === 0) continue;
		buttons.push((el.textContent || '').trim());
	}
	return { text, buttons };
})()`

type ticketModal struct {
	Text    string   `json:"text"`
	Buttons []string `json:"buttons"`
}

var (
	reRentalCount = regexp.MustCompile(`대여권[^0-9]*([0-9]+)`)
	reOwnCount    = regexp.MustCompile(`소장권[^0-9]*([0-9]+)`)
	reBalance     = regexp.MustCompile(`보유[^0-9]*([0-9]+)\s*캐시`)
	reCashAmount  = regexp.MustCompile(`([0-9]+)\s*캐시`)
)

func matchNum(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// parseTicketModal extracts counts, balance and price from the modal
// snapshot. The price comes from the price buttons only: the balance line
// ("보유 N 캐시") also matches the cash pattern and typically precedes the
// price in the modal text, so a whole-text match would read the balance.
func parseTicketModal(m *ticketModal) *AccessInfo {
	if m == nil {
		return nil
	}

	text := strings.ReplaceAll(m.Text, ",", "")

	info := &AccessInfo{
		RentalCount: matchNum(reRentalCount, text),
		OwnCount:    matchNum(reOwnCount, text),
		CashBalance: matchNum(reBalance, text),
	}

	for _, b := range m.Buttons {
		b = strings.ReplaceAll(b, ",", "")
		if strings.Contains(b, Labels.Balance) {
			continue
		}
		if p := matchNum(reCashAmount, b); p > 0 && info.RentalPrice == 0 {
			info.RentalPrice = p
		}
		if strings.Contains(b, "대여") || strings.Contains(b, "이용권") {
			info.rentalButtonVisible = true
		}
	}

	if info.RentalCount == 0 && info.OwnCount == 0 {
		info.AccessType = AccessNotPurchased
	}
	return info
}

// readTicketModal parses the current modal, if any.
func readTicketModal(ctx context.Context, b viewerDriver) (*AccessInfo, error) {
	var raw *ticketModal
	if err := b.Evaluate(ctx, ticketModalScript, &raw); err != nil {
		return nil, err
	}
	return parseTicketModal(raw), nil
}

// dismissExpiredModal clicks through the "rental expired" dialog when it
// blocks the viewer.
func dismissExpiredModal(ctx context.Context, b viewerDriver) error {
	if ok, err := b.ClickByText(ctx, Labels.ResumeViewing, ""); err != nil || ok {
		return err
	}
	_, err := b.ClickByText(ctx, Labels.Confirm, "")
	return err
}

// EnsureAccess navigates to the chapter viewer and arbitrates access.
// Returned errors are already translated: a dead target is ErrBrowserClosed.
func EnsureAccess(
	ctx context.Context,
	b *Browser,
	titleID string,
	viewerID string,
	chapterLabel string,
	prompt AccessPrompter,
	autoRent bool,
	autoBuy bool,
	log *ui.Logger,
) (AccessResult, error) {
	return ensureAccess(ctx, b, titleID, viewerID, chapterLabel, prompt, autoRent, autoBuy, log)
}

func ensureAccess(
	ctx context.Context,
	b viewerDriver,
	titleID string,
	viewerID string,
	chapterLabel string,
	prompt AccessPrompter,
	autoRent bool,
	autoBuy bool,
	log *ui.Logger,
) (AccessResult, error) {
	viewerURL := ViewerURL(titleID, viewerID)

	if err := b.Navigate(ctx, viewerURL); err != nil {
		return ResultSkipped, err
	}
	if err := b.WaitIdle(ctx, 3*time.Second); err != nil {
		return ResultSkipped, err
	}
	if err := dismissExpiredModal(ctx, b); err != nil {
		return ResultSkipped, err
	}

	result, err := arbitrate(ctx, b, chapterLabel, prompt, autoRent, log)
	if err != nil {
		return ResultSkipped, err
	}

	if result == resultNeedBuy {
		result, err = purchase(ctx, b, viewerURL, chapterLabel, prompt, autoRent, autoBuy, log)
		if err != nil {
			return ResultSkipped, err
		}
	}

	if result == ResultOpen || result == ResultConsumed {
		if err := ensureViewerActive(ctx, b, viewerURL); err != nil {
			return ResultSkipped, err
		}
	}

	return result, nil
}

func arbitrate(ctx context.Context, b viewerDriver, label string, prompt AccessPrompter, autoRent bool, log *ui.Logger) (AccessResult, error) {
	info, err := readTicketModal(ctx, b)
	if err != nil {
		return ResultSkipped, err
	}

	// No modal and no redirect: the chapter is open.
	if info == nil {
		loc, err := b.Location(ctx)
		if err != nil {
			return ResultSkipped, err
		}
		if strings.Contains(loc, BuyTicketPath) {
			return resultNeedBuy, nil
		}
		return ResultOpen, nil
	}

	if info.RentalCount >= 1 && info.rentalButtonVisible {
		use := autoRent
		if use {
			log.Line(ui.KindAuto, "Using rental ticket for %s (rental=%d own=%d)", label, info.RentalCount, info.OwnCount)
		} else {
			log.Line(ui.KindAsk, "Chapter %s needs a ticket (rental=%d own=%d balance=%d)", label, info.RentalCount, info.OwnCount, info.CashBalance)
			use = prompt.ConfirmUseRental(info.RentalCount, info.OwnCount, info.CashBalance, label)
		}
		if !use {
			return ResultSkipped, nil
		}

		if ok, err := b.ClickContainingText(ctx, "대여", ""); err != nil {
			return ResultSkipped, err
		} else if !ok {
			return ResultSkipped, fmt.Errorf("rental button vanished for %s", label)
		}
		if err := b.WaitIdle(ctx, 5*time.Second); err != nil {
			return ResultSkipped, err
		}
		return ResultConsumed, nil
	}

	if info.RentalCount == 0 && info.OwnCount == 0 {
		return resultNeedBuy, nil
	}

	// Owned copy without a visible rental button reads as already purchased.
	return ResultOpen, nil
}

func purchase(
	ctx context.Context,
	b viewerDriver,
	viewerURL string,
	label string,
	prompt AccessPrompter,
	autoRent bool,
	autoBuy bool,
	log *ui.Logger,
) (AccessResult, error) {
	info, err := readTicketModal(ctx, b)
	if err != nil {
		return ResultSkipped, err
	}

	price, balance := 0, 0
	if info != nil {
		price, balance = info.RentalPrice, info.CashBalance
	}

	buy := autoBuy
	if buy {
		log.Line(ui.KindAuto, "Buying ticket for %s (price=%d balance=%d)", label, price, balance)
	} else {
		log.Line(ui.KindAsk, "Chapter %s requires purchase (price=%d balance=%d)", label, price, balance)
		buy = prompt.ConfirmPurchase(price, balance)
	}
	if !buy {
		return ResultSkipped, nil
	}

	if price > 0 {
		if ok, err := b.ClickContainingText(ctx, fmt.Sprintf("%d %s", price, Labels.CashSuffix), ""); err != nil {
			return ResultSkipped, err
		} else if !ok {
			log.Line(ui.KindWarn, "Price button not found for %s", label)
		}
	}
	if ok, err := b.ClickByText(ctx, Labels.Charge, ""); err != nil {
		return ResultSkipped, err
	} else if !ok {
		log.Line(ui.KindWarn, "Charge button not found for %s", label)
	}
	if err := b.WaitIdle(ctx, 8*time.Second); err != nil {
		return ResultSkipped, err
	}

	// Re-open the viewer and run the ticket decision once more.
	if err := b.Navigate(ctx, viewerURL); err != nil {
		return ResultSkipped, err
	}
	if err := b.WaitIdle(ctx, 3*time.Second); err != nil {
		return ResultSkipped, err
	}

	result, err := arbitrate(ctx, b, label, prompt, autoRent, log)
	if err != nil {
		return ResultSkipped, err
	}
	if result == resultNeedBuy {
		// Purchase did not stick; do not loop.
		return ResultSkipped, fmt.Errorf("purchase for %s did not unlock the chapter", label)
	}
	return result, nil
}

// ensureViewerActive makes the viewer the active page, scrolled to top and
// settled.
func ensureViewerActive(ctx context.Context, b viewerDriver, viewerURL string) error {
	loc, err := b.Location(ctx)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(loc, viewerURL) {
		if err := b.Navigate(ctx, viewerURL); err != nil {
			return err
		}
	}

	if err := b.ScrollTop(ctx); err != nil {
		return err
	}
	return b.WaitIdle(ctx, 3*time.Second)
}
