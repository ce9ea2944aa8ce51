package extractor

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// mdConverter is safe for concurrent use and shared by every call.
var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// ToMarkdown converts record content to Markdown. Relative links and images
// are resolved against pageURL.
func ToMarkdown(content, pageURL string) (string, error) {
	if content == "" {
		return "", nil
	}
	md, err := mdConverter.ConvertString(content, converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("extractor: markdown conversion: %w", err)
	}
	return md, nil
}
