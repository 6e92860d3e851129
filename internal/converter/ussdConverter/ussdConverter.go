package ussdConverter

import (
	"fmt"
	"strings"

	"github.com/tkmaina/ussd_stock_tracker/internal/model"
)

const invalidInputLine = "Invalid input. Please try again.\n"

func cont(text string) model.USSDResponse {
	return model.USSDResponse{Continue: true, Text: text}
}

func end(text string) model.USSDResponse {
	return model.USSDResponse{Continue: false, Text: text}
}

func MainMenu() model.USSDResponse {
	return cont("Welcome to Share Price Tracker!\n" +
		"1. Subscribe\n" +
		"2. View Stocks\n" +
		"3. My Subscriptions\n" +
		"4. Unsubscribe")
}

func AlreadySubscribedUser() model.USSDResponse {
	return end("You are already subscribed! Choose '3' to manage your subscriptions.")
}

// SubscribeWelcome greets a freshly created subscriber and shows the stock menu.
func SubscribeWelcome(stocks []model.Stock) model.USSDResponse {
	b := strings.Builder{}
	b.WriteString("You have successfully subscribed!\n")
	b.WriteString("Now, let's select stocks to track.\n")
	writeStockMenu(&b, stocks)
	return cont(b.String())
}

// StockMenu renders the selectable catalog window.
func StockMenu(stocks []model.Stock, badInput bool) model.USSDResponse {
	b := strings.Builder{}
	if badInput {
		b.WriteString(invalidInputLine)
	}
	writeStockMenu(&b, stocks)
	return cont(b.String())
}

func writeStockMenu(b *strings.Builder, stocks []model.Stock) {
	b.WriteString("Available Stocks:\n")
	for i, stock := range stocks {
		fmt.Fprintf(b, "%d. %s\n", i+1, stock.Name)
	}
	b.WriteString("Enter stock number to select.\n")
	b.WriteString("0. Back")
}

func StockSubscribed(name string, already bool) model.USSDResponse {
	b := strings.Builder{}
	if already {
		fmt.Fprintf(&b, "You are already subscribed to %s.\n", name)
	} else {
		fmt.Fprintf(&b, "Successfully subscribed to %s.\n", name)
	}
	b.WriteString("1. Subscribe to another stock\n")
	b.WriteString("0. Back")
	return cont(b.String())
}

func StockDetail(stock model.Stock) model.USSDResponse {
	return end(fmt.Sprintf("%s: Ksh %s\nData in real-time.", stock.Name, stock.Price.StringFixed(2)))
}

func MySubscriptions() model.USSDResponse {
	return cont("My Subscriptions:\n" +
		"1. Manage Subscribed Stocks\n" +
		"2. Set Notification Preferences\n" +
		"0. Back")
}

func ManageSubscriptions(subscribed []string, badInput bool) model.USSDResponse {
	b := strings.Builder{}
	if badInput {
		b.WriteString(invalidInputLine)
	}
	if len(subscribed) == 0 {
		b.WriteString("You have no stocks subscribed yet.\n")
		b.WriteString("Enter 'add' to add stocks.\n")
		b.WriteString("0. Back")
		return cont(b.String())
	}
	b.WriteString("Your current subscriptions:\n")
	for i, name := range subscribed {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	b.WriteString("--- Add/Remove ---\n")
	b.WriteString("Enter stock number to remove, or 'add' to add new stocks.\n")
	b.WriteString("0. Back")
	return cont(b.String())
}

func StockRemoved(name string) model.USSDResponse {
	return cont(fmt.Sprintf("Removed %s from your subscriptions.\n", name) +
		"1. Manage Subscribed Stocks\n" +
		"2. Set Notification Preferences\n" +
		"0. Back")
}

func NotificationPrefs(openNotify, closeNotify, badInput bool) model.USSDResponse {
	b := strings.Builder{}
	if badInput {
		b.WriteString(invalidInputLine)
	}
	b.WriteString("Set Notification Preferences:\n")
	fmt.Fprintf(&b, "1. Market Open: %s\n", onOff(openNotify))
	fmt.Fprintf(&b, "2. Market Close: %s\n", onOff(closeNotify))
	b.WriteString("Select an option to toggle.\n")
	b.WriteString("0. Back")
	return cont(b.String())
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func NoStockData() model.USSDResponse {
	return end("No stock data available at the moment. Please try again later.")
}

func NotSubscribed() model.USSDResponse {
	return end("You are not subscribed. Dial again and select '1' to subscribe.")
}

func SubscriberNotFound() model.USSDResponse {
	return end("Error: Subscriber not found. Please re-subscribe.")
}

func Unsubscribed() model.USSDResponse {
	return end("You have successfully unsubscribed from Share Price Tracker. Goodbye!")
}

func InvalidInput() model.USSDResponse {
	return end("Invalid input. Please try again.")
}

func InternalError() model.USSDResponse {
	return end("Something went wrong. Please try again later.")
}
