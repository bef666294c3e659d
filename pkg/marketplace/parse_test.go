package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePage = `<!doctype html>
<html><body>
<div id="wayfinding-breadcrumbs_feature_div">
  <a class="a-link-normal a-color-tertiary" href="/g">Grocery &amp; Gourmet Foods</a>
  <a class="a-link-normal a-color-tertiary" href="/s">Snack Foods</a>
</div>
<span id="productTitle"> Acme Masala Peanuts </span>
<span class="a-price"><span class="a-offscreen">₹199.00</span></span>
<div id="feature-bullets"><ul>
  <li><span class="a-list-item">Crunchy roasted peanuts, 250 g pouch</span></li>
  <li><span class="a-list-item">No added preservatives</span></li>
</ul></div>
<table class="a-normal a-spacing-micro">
  <tr><td>Net Quantity</td><td>250 g</td></tr>
  <tr><td>Country of Origin</td><td>India</td></tr>
</table>
<table id="productDetails_techSpec_section_1">
  <tr><th>Manufacturer</th><td>Acme Foods Pvt Ltd</td></tr>
</table>
<script>
var data = {"colorImages":{"initial":[
  {"hiRes":"https://img.example.com/a.SL1500.jpg","large":"https://img.example.com/a.jpg"},
  {"hiRes":null,"large":"https://img.example.com/b.jpg"}
]}};
</script>
<img src="https://img.example.com/c.SX38_SY50_CR,0,0,38,50.jpg"/>
</body></html>`

func TestParseListingPage(t *testing.T) {
	page := parseListingPage([]byte(fixturePage))

	assert.Equal(t, "Acme Masala Peanuts", page.Title)
	assert.Equal(t, "₹199.00", page.MRP)
	assert.Equal(t, "250 g", page.Quantity)
	assert.Equal(t, "Acme Foods Pvt Ltd", page.Manufacturer)
	assert.Equal(t, "India", page.Origin)
	assert.Equal(t, []string{"Grocery & Gourmet Foods", "Snack Foods"}, page.Crumbs)
	require.Len(t, page.Bullets, 2)
	assert.Equal(t, "Crunchy roasted peanuts, 250 g pouch", page.Bullets[0])
	assert.Equal(t, []string{
		"https://img.example.com/a.SL1500.jpg",
		"https://img.example.com/b.jpg",
		"https://img.example.com/c.SL1500.jpg",
	}, page.ImageURLs)
}

func TestParseListingPage_QuantityFromBullets(t *testing.T) {
	html := `<span id="productTitle">Juice</span>
<div id="feature-bullets"><ul>
<li><span class="a-list-item">Family pack of fresh juice, 1.5 l bottle</span></li>
</ul></div>`
	page := parseListingPage([]byte(html))
	assert.Equal(t, "1.5 l", page.Quantity)
}

func TestParseListingPage_PriceBlockIDWins(t *testing.T) {
	html := `<span id="priceblock_ourprice">₹349.00</span>
<span class="a-offscreen">₹999.00</span>`
	page := parseListingPage([]byte(html))
	assert.Equal(t, "₹349.00", page.MRP)
}

func TestParseListingPage_EmptyPage(t *testing.T) {
	page := parseListingPage([]byte(`<html><body>Robot Check</body></html>`))
	assert.True(t, page.empty())
}

func TestSellerText(t *testing.T) {
	page := parseListingPage([]byte(fixturePage))
	text := page.sellerText()

	assert.Contains(t, text, "Acme Masala Peanuts\n")
	assert.Contains(t, text, "MRP: ₹199.00\n")
	assert.Contains(t, text, "Net Quantity: 250 g\n")
	assert.Contains(t, text, "Manufacturer: Acme Foods Pvt Ltd\n")
	assert.Contains(t, text, "Country of Origin: India\n")
	assert.Contains(t, text, "No added preservatives")
}

func TestCategorySlug(t *testing.T) {
	page := parseListingPage([]byte(fixturePage))
	assert.Equal(t, "grocery-gourmet-foods/snack-foods", page.category())
}

func TestExtractImageURLs_SkipsGifsAndDuplicates(t *testing.T) {
	html := `{"hiRes":"https://img.example.com/spinner.gif"}
{"hiRes":"https://img.example.com/a.jpg"}
{"large":"https://img.example.com/a.jpg"}`
	assert.Equal(t, []string{"https://img.example.com/a.jpg"}, extractImageURLs(html))
}
