package generator

import (
	"fmt"
	"strings"

	"jlpt-listening/internal/core/question"
)

const defaultGuidance = "Ensure options are diverse and contextually relevant"

var topicGuidance = map[string]string{
	"Daily Conversation":  "Focus on different responses, reactions, or solutions to daily situations",
	"Shopping":            "Include options about product choices, prices, preferences, or shopping decisions",
	"Restaurant":          "Vary between menu items, dining preferences, reservations, or special requests",
	"School Life":         "Include options about study plans, club activities, assignments, or school events",
	"Work Situation":      "Focus on workplace decisions, meeting schedules, project details, or business interactions",
	"Public Announcement": "Include options about event details, schedule changes, locations, or important notices",
	"Train Station":       "Vary between platform numbers, train lines, destinations, or service announcements",
	"Hospital":            "Include options about appointments, departments, medical procedures, or visiting hours",
	"Office":              "Focus on meeting rooms, document handling, office procedures, or work schedules",
	"Event Information":   "Include options about event times, locations, requirements, or program details",
}

var sectionTopics = map[int][]string{
	question.SectionTwo:   {"Daily Conversation", "Shopping", "Restaurant", "School Life", "Work Situation"},
	question.SectionThree: {"Public Announcement", "Train Station", "Hospital", "Office", "Event Information"},
}

// Topics lists the practice topics offered for a section.
func Topics(section int) []string {
	return append([]string(nil), sectionTopics[section]...)
}

// Guidance returns the option-diversity hint for a topic.
func Guidance(topic string) string {
	if g, ok := topicGuidance[topic]; ok {
		return g
	}
	return defaultGuidance
}

func retrievalQuery(topic string) string {
	if topic == "" {
		return "Generate a new JLPT listening question"
	}
	return "Generate a new JLPT listening question about " + topic
}

func questionPrompt(exemplar question.Question, section *int, topic string) string {
	topicLine := topic
	situation := topic
	if topic == "" {
		topicLine = "General JLPT listening practice"
		situation = "everyday"
	}
	sectionLine := "any"
	if section != nil {
		sectionLine = fmt.Sprintf("%d", *section)
	}

	var b strings.Builder
	b.WriteString("You are a JLPT listening test question creator. Generate a new question following these requirements:\n\n")
	fmt.Fprintf(&b, "Section: %s\n", sectionLine)
	fmt.Fprintf(&b, "Topic: %s\n\n", topicLine)
	b.WriteString("Original Question for Reference:\n")
	fmt.Fprintf(&b, "Introduction: %s\n", exemplar.Introduction)
	fmt.Fprintf(&b, "Conversation: %s\n", exemplar.Conversation)
	fmt.Fprintf(&b, "Question: %s\n", exemplar.Question)
	fmt.Fprintf(&b, "Options: %s\n\n", strings.Join(exemplar.Options, ", "))
	b.WriteString("Requirements for the new question:\n")
	fmt.Fprintf(&b, "1. Introduction (状況説明) must be in Japanese, describing a %s situation naturally\n", situation)
	b.WriteString("2. Conversation must be in Japanese, using appropriate keigo and natural dialogue\n")
	b.WriteString("3. Question (質問) must be in Japanese\n")
	b.WriteString("4. Options must be in Japanese, with 4 plausible but distinct choices\n")
	b.WriteString("5. Correct answer should be indicated as a number (0-3, where 0 is the first option)\n\n")
	b.WriteString("Important:\n")
	fmt.Fprintf(&b, "- %s\n", Guidance(topic))
	b.WriteString("- Avoid making all options about time durations\n")
	b.WriteString("- Each option should present a different scenario or choice\n")
	b.WriteString("- Options should be realistic and contextually appropriate\n\n")
	b.WriteString("Format the response exactly as follows:\n")
	b.WriteString(`{
    "introduction": "(Japanese introduction text)",
    "conversation": "(Japanese dialogue)",
    "question": "(Japanese question text)",
    "options": ["(Japanese option 1)", "(Japanese option 2)", "(Japanese option 3)", "(Japanese option 4)"],
    "correct_answer": (0-3)
}`)
	b.WriteString("\n\nNote: The conversation should maintain JLPT level appropriateness and test listening comprehension skills.\n")
	return b.String()
}

func feedbackPrompt(q question.Question, studentAnswer, correctAnswer string, similar []question.Question) string {
	var b strings.Builder
	b.WriteString("You are a JLPT listening test evaluator. Analyze this response and provide helpful feedback:\n\n")
	b.WriteString("Question Details:\n")
	fmt.Fprintf(&b, "- Introduction: %s\n", q.Introduction)
	fmt.Fprintf(&b, "- Conversation: %s\n", q.Conversation)
	fmt.Fprintf(&b, "- Question: %s\n", q.Question)
	fmt.Fprintf(&b, "- Student's Answer: %s\n", studentAnswer)
	fmt.Fprintf(&b, "- Correct Answer: %s\n\n", correctAnswer)
	b.WriteString("Similar Questions for Context:\n")
	for i, s := range similar {
		fmt.Fprintf(&b, "Similar Question %d:\n", i+1)
		fmt.Fprintf(&b, "Introduction: %s\n", s.Introduction)
		fmt.Fprintf(&b, "Conversation: %s\n", s.Conversation)
		fmt.Fprintf(&b, "Question: %s\n\n", s.Question)
	}
	b.WriteString("\nProvide feedback in this format:\n")
	b.WriteString("1. Start with whether the answer is correct or incorrect\n")
	b.WriteString("2. Explain the key points from the conversation that led to the correct answer\n")
	b.WriteString("3. Highlight any important Japanese expressions or grammar patterns used\n")
	b.WriteString("4. Give specific tips for improving listening comprehension\n")
	b.WriteString("5. End with an encouraging note\n\n")
	b.WriteString("Keep the feedback clear and concise in English to help the student understand and improve.\n")
	return b.String()
}

// structurePrompt asks the model to pull questions out of a transcript window.
func structurePrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("Extract only the JLPT listening test questions from the following transcript, excluding any introduction and outro:\n\n")
	b.WriteString(transcript)
	b.WriteString("\n\nFor each question, provide the following structure:\n")
	b.WriteString("introduction:\nconversation:\nquestion:\n\n")
	b.WriteString("Separate each question with '---'.\n")
	return b.String()
}

const structureSystem = "You are a helpful assistant that extracts JLPT listening test questions from transcripts."
