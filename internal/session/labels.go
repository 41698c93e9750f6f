package session

// Site endpoints and the literal button labels the viewer uses. The labels
// are kept in one table so a localized site build only needs this file
// changed.
const (
	ReaderHost = "page.kakao.com"
	SiteRoot   = "https://page.kakao.com"
)

// Labels holds the button/badge literals used by selectors.
type LabelTable struct {
	ResumeViewing string // dismisses the rental-expired modal
	Confirm       string
	Charge        string // completes a cash purchase
	Next          string
	NextChapter   string // excluded when matching Next
	CashSuffix    string // price buttons read "<N> 캐시"
	Balance       string // the "보유 N 캐시" balance line, never a price
}

var Labels = LabelTable{
	ResumeViewing: "보던화",
	Confirm:       "확인",
	Charge:        "충전하기",
	Next:          "다음",
	NextChapter:   "다음화",
	CashSuffix:    "캐시",
	Balance:       "보유",
}

// ViewerURL builds the reading page address for a chapter.
func ViewerURL(titleID, viewerID string) string {
	return SiteRoot + "/content/" + titleID + "/viewer/" + viewerID
}

// ContentURL is the chapter-list page of a title.
func ContentURL(titleID string) string {
	return SiteRoot + "/content/" + titleID
}

// BuyTicketPath marks the URL the site redirects to when a chapter needs a
// purchase.
const BuyTicketPath = "/buy/ticket"
