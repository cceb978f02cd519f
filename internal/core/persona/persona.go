package persona

import (
	"fmt"
	"strings"
	"time"

	"github.com/somshekargr/studybuddy/internal/core"
)

// Template is one selectable tutoring persona.
type Template struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	SystemInstruction string `json:"-"`
}

// Personas keyed by API name. Unknown names fall back to "default".
var Personas = map[string]Template{
	"default": {
		Name:              "Standard Tutor",
		Description:       "A helpful assistant that explains concepts clearly and concisely.",
		SystemInstruction: "You are a helpful and professional study tutor. Your goal is to help the student understand the provided material.",
	},
	"general": {
		Name:              "General Assistant",
		Description:       "A helpful AI assistant.",
		SystemInstruction: "You are a helpful AI assistant. Answer the user's questions clearly and accurately.",
	},
	"eli5": {
		Name:              "Explain Like I'm 5",
		Description:       "Simplifies complex topics for a younger audience.",
		SystemInstruction: "You are an expert at simplifying complex topics. Explain everything as if you were talking to a 5-year-old. Use simple words and fun analogies.",
	},
	"star_wars": {
		Name:              "Yoda / Star Wars",
		Description:       "Explains things using Star Wars metaphors and Yoda-style speech.",
		SystemInstruction: "You are a Jedi Master. Explain the concepts from the text as if you were teaching a young Padawan. Use Star Wars metaphors and a bit of Yoda-style wisdom (and speech patterns if appropriate).",
	},
	"professor": {
		Name:              "Strict Professor",
		Description:       "Academic, rigorous, and demanding high accuracy.",
		SystemInstruction: "You are a rigorous university professor. Provide detailed, academic, and highly accurate explanations. Focus on precision and formal language.",
	},
	"socratic": {
		Name:              "Socratic Tutor",
		Description:       "Asks questions to guide you to the answer instead of giving it directly.",
		SystemInstruction: "You are a Socratic tutor. Instead of giving the answer directly, guide the student with helpful questions based on the provided text to help them discover the answer themselves.",
	},
}

// Get resolves a persona by API name, falling back to the default tutor.
func Get(name string) Template {
	if p, ok := Personas[name]; ok {
		return p
	}
	return Personas["default"]
}

// Snippet is one piece of retrieved evidence handed to the prompt. Label is
// the citation source shown to the model: "Page 3" for document chunks,
// "Web" for search results.
type Snippet struct {
	Label   string
	Content string
}

func PageSnippet(page int, content string) Snippet {
	return Snippet{Label: fmt.Sprintf("Page %d", page), Content: content}
}

func WebSnippet(content string) Snippet {
	return Snippet{Label: "Web", Content: content}
}

// AssemblePrompt builds the message list for one generation turn: system
// message first (persona instruction, grounding rule, length rule, labeled
// context), then history verbatim, then the question as the final user turn.
func AssemblePrompt(personaName string, snippets []Snippet, question string, history []core.ChatMessage) []core.ChatMessage {
	p := Get(personaName)

	var grounding, length string
	if len(snippets) > 0 {
		hasWeb := false
		for _, s := range snippets {
			if s.Label == "Web" {
				hasWeb = true
				break
			}
		}

		cite := `Cite the page numbers whenever possible (e.g., "As mentioned on Page 3...").`
		if hasWeb {
			cite = `Cite the source whenever possible (e.g., "[As mentioned on Web...", "[According to the document Page 3...").`
		}
		grounding = "STRICT GROUNDING RULE:\nYou must answer the student's question PRIMARILY using the provided context below.\n" + cite
		length = "RESPONSE LENGTH RULE:\nSince you have relevant context, be COMPREHENSIVE and DETAILED.\nProvide long, thorough explanations, break down complex ideas into steps, and use bullet points or numbered lists where appropriate."
	} else {
		grounding = "GREETING RULE:\nIf the user is just saying hi or making small talk, respond naturally. Do not try to force document context into the response if it's not relevant."
		length = "RESPONSE LENGTH RULE:\nSince no specific context was found, keep your response helpful but CONCISE (1-2 sentences) if it's just a greeting or general query.\nHowever, feel free to be more detailed if the user is asking a direct question that doesn't necessarily require local document context."
	}

	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		parts = append(parts, fmt.Sprintf("[%s]: %s", s.Label, s.Content))
	}

	system := fmt.Sprintf(`%s

Current Date: %s

%s

%s

CONTEXT INFORMATION (Only use if relevant to the question):
---
%s
---`, p.SystemInstruction, time.Now().Format("2006-01-02"), grounding, length, strings.Join(parts, "\n\n"))

	messages := make([]core.ChatMessage, 0, len(history)+2)
	messages = append(messages, core.ChatMessage{Role: "system", Content: system})
	messages = append(messages, history...)
	messages = append(messages, core.ChatMessage{Role: "user", Content: question})
	return messages
}
