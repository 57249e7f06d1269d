package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docudesk/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
}

func New(baseURL, genModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyzer produces document analyses through the Ollama generate API.
type Analyzer struct {
	client   *Client
	executor *resilience.Executor
}

func NewAnalyzer(client *Client, executor *resilience.Executor) *Analyzer {
	return &Analyzer{client: client, executor: executor}
}

func (a *Analyzer) Model() string {
	return a.client.genModel
}

func (a *Analyzer) Analyze(ctx context.Context, content, instruction string) (string, error) {
	prompt := buildAnalysisPrompt(content, instruction)

	var result string
	call := func(ctx context.Context) error {
		text, err := a.client.generateText(ctx, prompt)
		if err != nil {
			return err
		}
		result = text
		return nil
	}

	var err error
	if a.executor != nil {
		err = a.executor.Execute(ctx, "ollama.generate", call, resilience.ClassifyHTTP)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", resilience.MarkTemporary("analyze document", err, resilience.ClassifyHTTP)
	}
	return result, nil
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
