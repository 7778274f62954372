// Package overlay draws operator-facing highlights and banners on the live
// page while a fill runs. Nothing here affects the form itself.
package overlay

import (
	"context"
	"fmt"
	"strconv"

	"github.com/v0xg/formfill/internal/crawler"
)

// Style is an outline applied to an element
type Style struct {
	Border string
	Shadow string
}

var (
	// FieldStyle marks the field being typed into
	FieldStyle = Style{Border: "2px solid blue", Shadow: "0 0 5px rgba(0, 0, 255, 0.5)"}
	// SubmitStyle marks the submit control before it is clicked
	SubmitStyle = Style{Border: "2px solid green", Shadow: "0 0 5px rgba(0, 255, 0, 0.5)"}
)

// DefaultBanner is shown after a successful submit
const DefaultBanner = "Form Submitted Successfully!"

// Highlight applies s to the element
func Highlight(ctx context.Context, el crawler.Element, s Style) error {
	return el.Eval(ctx, styleScript(s.Border, s.Shadow))
}

// Unhighlight removes any highlight
func Unhighlight(ctx context.Context, el crawler.Element) error {
	return el.Eval(ctx, styleScript("", ""))
}

func styleScript(border, shadow string) string {
	return fmt.Sprintf(`() => {
	this.style.border = %s;
	this.style.boxShadow = %s;
}`, strconv.Quote(border), strconv.Quote(shadow))
}

// ShowBanner renders a centered notice that stays until the page goes away
func ShowBanner(ctx context.Context, page crawler.Page, message string, hold string) error {
	return page.Eval(ctx, fmt.Sprintf(bannerScript, strconv.Quote(message), strconv.Quote(hold)))
}

const bannerScript = `() => {
	const dialog = document.createElement('div');
	dialog.setAttribute('data-formfill-banner', '');
	dialog.style.cssText = 'position: fixed; top: 50%%; left: 50%%; transform: translate(-50%%, -50%%);' +
		'background: #4CAF50; color: white; padding: 20px; border-radius: 8px;' +
		'box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1); z-index: 10000;' +
		'font-family: Arial, sans-serif; font-size: 16px; text-align: center;' +
		'animation: formfillFadeIn 0.3s ease-out;';
	const title = document.createElement('div');
	title.style.marginBottom = '15px';
	title.textContent = %s;
	const note = document.createElement('div');
	note.style.fontSize = '14px';
	note.textContent = %s;
	dialog.append(title, note);
	document.body.appendChild(dialog);

	const style = document.createElement('style');
	style.textContent = '@keyframes formfillFadeIn {' +
		'from { opacity: 0; transform: translate(-50%%, -60%%); }' +
		'to { opacity: 1; transform: translate(-50%%, -50%%); } }';
	document.head.appendChild(style);
}`
