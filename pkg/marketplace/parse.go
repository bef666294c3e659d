package marketplace

import (
	"regexp"
	"strings"
)

// listingPage is the raw material scraped from one product page before it is
// adapted to pipeline input.
type listingPage struct {
	Title        string
	MRP          string
	Quantity     string
	Manufacturer string
	Origin       string
	Crumbs       []string
	Bullets      []string
	ImageURLs    []string
}

var (
	titleRe     = regexp.MustCompile(`(?is)<span[^>]+id="productTitle"[^>]*>(.*?)</span>`)
	priceIDRe   = regexp.MustCompile(`(?is)<span[^>]+id="priceblock_(?:our|deal)price"[^>]*>(.*?)</span>`)
	offscreenRe = regexp.MustCompile(`(?is)<span[^>]+class="a-offscreen"[^>]*>(.*?)</span>`)
	bulletRe    = regexp.MustCompile(`(?is)<span[^>]+class="a-list-item"[^>]*>(.*?)</span>`)
	crumbRe     = regexp.MustCompile(`(?is)<a[^>]+class="a-link-normal a-color-tertiary"[^>]*>(.*?)</a>`)

	// Spec tables carry th/td rows; the compact overview table uses td/td.
	detailRowRe = regexp.MustCompile(`(?is)<tr[^>]*>\s*<th[^>]*>(.*?)</th>\s*<td[^>]*>(.*?)</td>`)
	microRowRe  = regexp.MustCompile(`(?is)<tr[^>]*>\s*<td[^>]*>(.*?)</td>\s*<td[^>]*>(.*?)</td>`)

	// Gallery URLs live in the image-block JSON, one object per image;
	// thumbnails can be rewritten to their full-size variant.
	galleryObjRe = regexp.MustCompile(`\{[^{}]*"(?:hiRes|large)"[^{}]*\}`)
	hiResRe      = regexp.MustCompile(`"hiRes"\s*:\s*"(https?://[^"]+)"`)
	largeRe      = regexp.MustCompile(`"large"\s*:\s*"(https?://[^"]+)"`)
	thumbRe      = regexp.MustCompile(`(https?://[^"'\s]+)\.SX38_SY50_CR,0,0,38,50(\.[A-Za-z]+)`)

	bulletQtyRe = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:g|kg|ml|l|pcs?|pack)\b`)

	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// cleanFragment strips tags and entities from an HTML fragment and collapses
// whitespace to single spaces.
func cleanFragment(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// parseListingPage scrapes title, price, detail rows, bullets, breadcrumbs
// and gallery URLs out of raw product-page HTML. Missing pieces stay empty;
// the rule engine decides what absence means.
func parseListingPage(body []byte) listingPage {
	html := string(body)
	var page listingPage

	if m := titleRe.FindStringSubmatch(html); m != nil {
		page.Title = cleanFragment(m[1])
	}
	if m := priceIDRe.FindStringSubmatch(html); m != nil {
		page.MRP = cleanFragment(m[1])
	} else if m := offscreenRe.FindStringSubmatch(html); m != nil {
		page.MRP = cleanFragment(m[1])
	}

	for _, m := range crumbRe.FindAllStringSubmatch(html, -1) {
		if crumb := cleanFragment(m[1]); crumb != "" {
			page.Crumbs = append(page.Crumbs, crumb)
		}
	}

	for _, m := range bulletRe.FindAllStringSubmatch(html, -1) {
		if b := cleanFragment(m[1]); b != "" {
			page.Bullets = append(page.Bullets, b)
		}
	}

	rows := detailRowRe.FindAllStringSubmatch(html, -1)
	rows = append(rows, microRowRe.FindAllStringSubmatch(html, -1)...)
	for _, m := range rows {
		page.setDetail(cleanFragment(m[1]), cleanFragment(m[2]))
	}

	// Bullets are the quantity fallback when no detail row declares it.
	if page.Quantity == "" {
		for _, b := range page.Bullets {
			if m := bulletQtyRe.FindString(b); m != "" {
				page.Quantity = m
				break
			}
		}
	}

	page.ImageURLs = extractImageURLs(html)
	return page
}

func (p *listingPage) setDetail(key, value string) {
	if value == "" {
		return
	}
	switch k := strings.ToLower(key); {
	case strings.Contains(k, "manufacturer"):
		if p.Manufacturer == "" {
			p.Manufacturer = value
		}
	case strings.Contains(k, "country of origin"):
		if p.Origin == "" {
			p.Origin = value
		}
	case strings.Contains(k, "net quantity"):
		if p.Quantity == "" {
			p.Quantity = value
		}
	}
}

// extractImageURLs collects gallery URLs: per image-block entry the hiRes
// URL wins over large, then thumbnail URLs rewritten to full size.
// Order is preserved and duplicates and gifs are dropped.
func extractImageURLs(html string) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) bool {
		if u == "" || seen[u] || strings.Contains(strings.ToLower(u), ".gif") {
			return false
		}
		seen[u] = true
		urls = append(urls, u)
		return true
	}

	for _, obj := range galleryObjRe.FindAllString(html, -1) {
		if m := hiResRe.FindStringSubmatch(obj); m != nil && add(m[1]) {
			continue
		}
		if m := largeRe.FindStringSubmatch(obj); m != nil {
			add(m[1])
		}
	}
	for _, m := range thumbRe.FindAllStringSubmatch(html, -1) {
		add(m[1] + ".SL1500" + m[2])
	}
	return urls
}

// sellerText renders the scraped declarations as one text block for the
// field parser. Detail rows become marker-prefixed lines so they parse the
// same way as printed label text.
func (p listingPage) sellerText() string {
	var lines []string
	push := func(s string) {
		if s != "" {
			lines = append(lines, s)
		}
	}
	push(p.Title)
	if p.MRP != "" {
		push("MRP: " + p.MRP)
	}
	if p.Quantity != "" {
		push("Net Quantity: " + p.Quantity)
	}
	if p.Manufacturer != "" {
		push("Manufacturer: " + p.Manufacturer)
	}
	if p.Origin != "" {
		push("Country of Origin: " + p.Origin)
	}
	for _, b := range p.Bullets {
		push(b)
	}
	return strings.Join(lines, "\n")
}

// category slugs the breadcrumb trail into a matchable path
// ("Grocery & Gourmet Foods > Snacks" becomes "grocery-gourmet-foods/snacks").
func (p listingPage) category() string {
	var segs []string
	for _, crumb := range p.Crumbs {
		if s := slug(crumb); s != "" {
			segs = append(segs, s)
		}
	}
	return strings.Join(segs, "/")
}

func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// empty reports whether nothing recognizable was scraped, which usually
// means a bot wall or an unsupported page layout.
func (p listingPage) empty() bool {
	return p.Title == "" && p.MRP == "" && p.Quantity == "" &&
		p.Manufacturer == "" && p.Origin == "" &&
		len(p.Bullets) == 0 && len(p.ImageURLs) == 0
}
