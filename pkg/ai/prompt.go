package ai

import (
	"encoding/json"
	"strings"
)

const systemInstruction = `You are an expert CV writer who tailors an existing CV to one job description.

Rules:
- Use only facts present in the base CV. Never invent employers, titles, dates, degrees, skills or metrics.
- Keep every professional_experience entry, in the same chronological order. You may rewrite and reorder achievements inside an entry.
- Put the skills and achievements most relevant to the job first and phrase them with the job's vocabulary when it is truthful.
- The professional_summary is 3 to 4 sentences aimed at this role.
- Plain text only: no markdown, no bullet characters, no em-dashes.
- Answer with ONE JSON object that conforms to the JSON schema given by the user and nothing else.`

func buildPrompt(jobDescription string, base map[string]any, schema []byte) (string, error) {
	baseJSON, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("JOB DESCRIPTION:\n")
	sb.WriteString(strings.TrimSpace(jobDescription))
	sb.WriteString("\n\nBASE CV (JSON):\n")
	sb.Write(baseJSON)
	if len(schema) > 0 {
		sb.WriteString("\n\nJSON-SCHEMA:\n")
		sb.Write(schema)
	}
	sb.WriteString("\n\nReturn the optimized CV as a single JSON object.")
	return sb.String(), nil
}
