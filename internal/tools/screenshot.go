package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// TakeScreenshotTool returns a tool that captures a page screenshot with a
// headless browser. The browser is launched lazily on first use.
func TakeScreenshotTool() *Tool {
	return &Tool{
		Name:        "take_screenshot",
		Description: "Capture a screenshot of a web page and save it to a file",
		Category:    CategoryVision,
		Execute:     executeScreenshot,
		Schema: Schema{
			Required: []string{"url", "output_path"},
			Properties: map[string]Property{
				"url":         {Type: "string", Description: "The page URL to capture"},
				"output_path": {Type: "string", Description: "Where to write the PNG"},
				"full_page":   {Type: "boolean", Description: "Capture the full scroll height", Default: false},
			},
		},
	}
}

func executeScreenshot(ctx context.Context, args map[string]any) (string, error) {
	url, _ := args["url"].(string)
	outputPath, _ := args["output_path"].(string)
	if url == "" || outputPath == "" {
		return "", fmt.Errorf("url and output_path are required")
	}
	fullPage, _ := args["full_page"].(bool)

	controlURL, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load failed: %w", err)
	}

	data, err := page.Screenshot(fullPage, nil)
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return fmt.Sprintf("saved %d bytes to %s", len(data), outputPath), nil
}
