package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// crawlResponse mirrors the Shopcrawl crawl API response.
type crawlResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// crawlStatusResponse mirrors the Shopcrawl crawl status API response.
type crawlStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Products  []json.RawMessage `json:"products"`
}

// sitemapsResponse mirrors the Shopcrawl sitemaps API response.
type sitemapsResponse struct {
	Success bool     `json:"success"`
	URLs    []string `json:"urls"`
	Total   int      `json:"total"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// extractResponse mirrors the Shopcrawl extract API response.
type extractResponse struct {
	Success bool            `json:"success"`
	Product json.RawMessage `json:"product"`
	Cached  bool            `json:"cached"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("SHOPCRAWL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SHOPCRAWL_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SHOPCRAWL_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"shopcrawl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	crawlTool := mcp.NewTool("crawl_products",
		mcp.WithDescription("Crawl an e-commerce site's sitemaps and extract all product records (title, price, images, description, etc). Runs asynchronously and returns the collected products."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Base URL of the site to crawl, e.g. https://shop.example.com"),
		),
		mcp.WithNumber("max_products",
			mcp.Description("Maximum number of product pages to extract (default: 10000)"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Extraction worker pool size (default: 40, max: 100)"),
		),
	)
	s.AddTool(crawlTool, handleCrawlProducts(apiURL, apiKey))

	sitemapsTool := mcp.NewTool("find_sitemaps",
		mcp.WithDescription("Resolve an e-commerce site's sitemap tree and return the product page URLs it would crawl, without extracting anything."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Base URL of the site, e.g. https://shop.example.com"),
		),
		mcp.WithBoolean("product_only",
			mcp.Description("Filter the URL list through the product-URL heuristic (default: false)"),
		),
	)
	s.AddTool(sitemapsTool, handleFindSitemaps(apiURL, apiKey))

	extractTool := mcp.NewTool("extract_product",
		mcp.WithDescription("Fetch a single product page and extract its structured product record."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL to extract"),
		),
	)
	s.AddTool(extractTool, handleExtractProduct(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Shopcrawl API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+endpoint, nil)
			if err != nil {
				return nil, fmt.Errorf("create poll request: %w", err)
			}
			req.Header.Set("X-API-Key", apiKey)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read poll response: %w", err)
			}

			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "processing" {
				return body, nil
			}
		}
	}
}

func handleCrawlProducts(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{
			"url": url,
		}

		args := request.GetArguments()
		if maxProducts, ok := args["max_products"]; ok {
			payload["max_products"] = maxProducts
		}
		if workers, ok := args["workers"]; ok {
			payload["workers"] = workers
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/crawl", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("crawl request failed: %v", err)), nil
		}

		var crawlResp crawlResponse
		if err := json.Unmarshal(respBody, &crawlResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl response: %v", err)), nil
		}

		if crawlResp.ID == "" {
			return mcp.NewToolResultError("crawl job creation failed"), nil
		}

		resultBody, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/crawl/"+crawlResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling crawl job failed: %v", err)), nil
		}

		var statusResp crawlStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl status: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Crawl %s: %s (%d/%d products)\n\n", statusResp.ID, statusResp.Status, statusResp.Completed, statusResp.Total))

		for _, raw := range statusResp.Products {
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				pretty.Write(raw)
			}
			sb.WriteString(pretty.String())
			sb.WriteString("\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleFindSitemaps(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{
			"url":          url,
			"product_only": request.GetBool("product_only", false),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/sitemaps", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sitemaps request failed: %v", err)), nil
		}

		var smResp sitemapsResponse
		if err := json.Unmarshal(respBody, &smResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse sitemaps response: %v", err)), nil
		}

		if !smResp.Success {
			errMsg := "sitemap resolution failed"
			if smResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", smResp.Error.Code, smResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d URLs:\n\n", smResp.Total))
		for _, u := range smResp.URLs {
			sb.WriteString(u + "\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleExtractProduct(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/extract", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}

		var extResp extractResponse
		if err := json.Unmarshal(respBody, &extResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse extract response: %v", err)), nil
		}

		if !extResp.Success {
			errMsg := "extraction failed"
			if extResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", extResp.Error.Code, extResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, extResp.Product, "", "  "); err != nil {
			pretty.Write(extResp.Product)
		}

		return mcp.NewToolResultText("Extracted Product:\n" + pretty.String()), nil
	}
}
