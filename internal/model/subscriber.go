package model

type NotificationKind string

const (
	NotificationMarketOpen  NotificationKind = "open"
	NotificationMarketClose NotificationKind = "close"
)

type Subscriber struct {
	PhoneNumber       string
	Stocks            []string
	MarketOpenNotify  bool
	MarketCloseNotify bool
}
