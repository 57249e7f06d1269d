package ollama

const maxSnippet = 16000

func buildAnalysisPrompt(content, instruction string) string {
	snippet := content
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	task := instruction
	if task == "" {
		task = `Summarize the document: key topics, named parties, dates, amounts,
and the overall purpose. Plain text, no markdown.`
	}

	return `You are a document analyst.
` + task + `

Document:
` + snippet
}
