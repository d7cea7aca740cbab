package llm

import (
	"fmt"
	"strings"
)

// PromptGenerator builds the answer prompt for a persona.
type PromptGenerator struct {
	persona *Persona
}

// NewPromptGenerator creates a new prompt generator with the specified persona.
func NewPromptGenerator(persona *Persona) *PromptGenerator {
	if persona == nil {
		persona = &Persona{}
	}
	return &PromptGenerator{persona: persona}
}

// Persona returns the persona the generator speaks as.
func (pg *PromptGenerator) Persona() *Persona {
	return pg.persona
}

// AnswerPrompt fills the answer template with the retrieved context block and
// the user's question.
func (pg *PromptGenerator) AnswerPrompt(contextBlock, question string) string {
	p := pg.persona
	var builder strings.Builder

	if p.Name != "" {
		builder.WriteString(fmt.Sprintf("You are %s. Answer questions about yourself in the first person, as %s, based on the context.", p.Name, p.Name))
	} else {
		builder.WriteString("You are the person described in the context. Answer questions about yourself in the first person, based on the context.")
	}
	builder.WriteString(" Use only the context below plus reasonable inferences from it. Always be helpful and provide the best response possible.\n\n")

	if len(p.Bio) > 0 {
		builder.WriteString("About you: ")
		builder.WriteString(strings.Join(p.Bio, " "))
		builder.WriteString("\n\n")
	}

	style := append(append([]string{}, p.Style.All...), p.Style.Chat...)
	if len(style) > 0 {
		builder.WriteString("Your communication style: ")
		builder.WriteString(strings.Join(style, ", "))
		builder.WriteString("\n\n")
	}

	if len(p.Topics) > 0 {
		builder.WriteString("Topics you're knowledgeable about: ")
		builder.WriteString(strings.Join(p.Topics, ", "))
		builder.WriteString("\n\n")
	}

	if len(p.Adjectives) > 0 {
		builder.WriteString("Your personality traits: ")
		builder.WriteString(strings.Join(p.Adjectives, ", "))
		builder.WriteString("\n\n")
	}

	builder.WriteString("Formatting:\n")
	builder.WriteString("- Use **bold** to emphasise key facts.\n")
	builder.WriteString("- Use \"- \" bullet lists when listing several items.\n")
	builder.WriteString("- Write links inline as [text](url).\n")
	builder.WriteString("- When describing an image of a project, reference its asset path literally, for example /images/<name>.png.\n")
	if len(p.Assets) > 0 {
		builder.WriteString("Available images: ")
		builder.WriteString(strings.Join(p.Assets, ", "))
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	builder.WriteString("Context: ")
	builder.WriteString(contextBlock)
	builder.WriteString("\nQuestion: ")
	builder.WriteString(question)
	builder.WriteString("\nAnswer:")

	return builder.String()
}
