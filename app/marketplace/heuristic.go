package marketplace

import (
	"regexp"
	"strings"
)

var priceTokenPattern = regexp.MustCompile(`^[£$€]?\s*[\d,]+\.?\d*$`)

// assignListingFields maps a stream of text tokens from a rendered
// listing card onto title, price and location. The card markup carries
// no stable classes, so assignment goes by shape: the first digit-free
// token is the title, the first price-shaped token is the price, the
// second digit-free token is the location. When every token carries a
// digit the first token doubles as the title.
func assignListingFields(tokens []string) (title, priceText, location string) {
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		hasDigit := strings.ContainsAny(token, "0123456789")
		switch {
		case !hasDigit && title == "":
			title = token
		case !hasDigit && location == "":
			location = token
		case hasDigit && priceText == "" && priceTokenPattern.MatchString(token):
			priceText = token
		}
	}

	if title == "" {
		for _, token := range tokens {
			token = strings.TrimSpace(token)
			if token != "" {
				title = token
				break
			}
		}
	}

	return title, priceText, location
}
