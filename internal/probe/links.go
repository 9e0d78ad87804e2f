package probe

import (
	"fmt"
	"net/url"
	"strings"
)

// DetailLink builds the "view all" URL for a probe. The link encodes the
// same filters and sort order the probe used, so the list the viewer
// opens is consistent with what was counted on the card.
func DetailLink(baseURL, listPath string, req Request) string {
	values := url.Values{}

	for _, f := range req.Filters {
		switch f.Operator {
		case "=":
			values.Set(f.Field, fmt.Sprint(f.Value))
		case "in":
			if members, ok := f.Value.([]string); ok {
				values.Set(f.Field, strings.Join(members, ","))
			} else {
				values.Set(f.Field, fmt.Sprint(f.Value))
			}
		default:
			// Range operators encode as field__op=value.
			values.Set(f.Field+"__"+opSlug(f.Operator), fmt.Sprint(f.Value))
		}
	}

	if req.OrderBy != "" {
		values.Set("order_by", req.OrderBy)
	}

	link := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(listPath, "/")
	if encoded := values.Encode(); encoded != "" {
		link += "?" + encoded
	}
	return link
}

func opSlug(op string) string {
	switch op {
	case "<":
		return "lt"
	case "<=":
		return "lte"
	case ">":
		return "gt"
	case ">=":
		return "gte"
	case "!=":
		return "ne"
	default:
		return "eq"
	}
}
