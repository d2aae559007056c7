package checkout

import (
	"fmt"
	"html"
	"strings"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/order"
)

const messageTimeLayout = "02.01.2006 15:04"

// FormatOrderMessage renders the staff notification in Telegram HTML.
func FormatOrderMessage(o *order.Order) string {
	name := o.CustomerName
	if name == "" {
		name = "not specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>New order #%s</b>\n\n", html.EscapeString(o.ID))
	fmt.Fprintf(&b, "<b>Customer:</b> %s\n", html.EscapeString(name))
	fmt.Fprintf(&b, "<b>Phone:</b> %s\n", html.EscapeString(o.PhoneNumber))
	fmt.Fprintf(&b, "<b>Total:</b> %s\n\n", o.TotalAmount.StringFixed(2))
	b.WriteString("<b>Items:</b>\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "• %s - %d × %s = %s\n",
			html.EscapeString(it.ProductName), it.Quantity, it.Price.StringFixed(2), it.Total().StringFixed(2))
	}
	fmt.Fprintf(&b, "\n<b>Time:</b> %s", o.CreatedAt.Format(messageTimeLayout))
	return b.String()
}
