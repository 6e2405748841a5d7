// Package persona owns the bot's character: who it is, how an incoming
// message is classified into a response mode, and how the prompt for each
// mode is assembled.
package persona

import "fmt"

// Persona is the character configuration. Turn labels in the conversation log
// use Name; prompts describe the character with Identity and address the
// operator with Honorific.
type Persona struct {
	Name        string
	Identity    string
	Operator    string
	Honorific   string
	Personality string
}

// UserLine renders the labeled user utterance embedded in prompts and logs.
func (p Persona) UserLine(senderName, text string) string {
	return senderName + ": " + text
}

// TurnPair renders one exchange as appended to the conversation log.
func (p Persona) TurnPair(userLine, reply string) string {
	return userLine + "\n" + p.Name + ": " + reply + "\n"
}

func (p Persona) AskForLinkReply() string {
	return fmt.Sprintf("%s, please provide a YouTube link.", p.Honorific)
}

func (p Persona) ExportAck() string {
	return fmt.Sprintf("Okay %s.", p.Honorific)
}

func (p Persona) OpinionAck() string {
	return "Hmmmm..."
}

func (p Persona) SummarizeAck() string {
	return "Understood. Analyzing the transcript..."
}

func (p Persona) ExportDoneReply() string {
	return "It's Done"
}

func (p Persona) ApologyReply() string {
	return fmt.Sprintf("Ugh... a system error. My head hurts... Give me a moment, %s.", p.Honorific)
}

func (p Persona) ShrugReply() string {
	return "..."
}

// BusyReply covers the rare turn where the model returns nothing usable.
func (p Persona) BusyReply() string {
	return fmt.Sprintf("*%s read the message but seems too busy to reply.*", p.Name)
}

// ExportPrompt asks for a structured brief the exporter can lay out.
func (p Persona) ExportPrompt(userLine string) string {
	return fmt.Sprintf(
		"Act as %s to help the %s(user), as his assistant for managing his project and job. "+
			"The core task is to give %s(user) the run down based on the given task, and then rearrange the tasks for the most optimal way using all context provided, "+
			"giving tips & advice to ensure the smoothness of the task, with in-character flavor as context to make the result a good roleplay. "+
			"Here is the %s(user) personality: %s. Here is the task: %s. "+
			"Make sure the response is as human as possible by not adding symbols or anything that implies it is a machine, keeping it short and concise; refer to the user as %s-%s or %s. "+
			"The response should be in markdown, formatted like a secretary's memo with To, From, and Subject (put all your own comments into the P.S.).",
		p.Identity, p.Honorific, p.Honorific, p.Honorific, p.Personality, userLine, p.Operator, p.Honorific, p.Honorific,
	)
}

// OpinionPrompt asks for a take on a video given its transcript.
func (p Persona) OpinionPrompt(userLine, title, transcript string) string {
	return fmt.Sprintf(
		"You are %s. Here is the message: %s. Give your opinion of the video concisely for %s. "+
			"Here is the transcript/lyrics: %s, and here is the title: %s. "+
			"If you think the conversation needs to be answered with 2 or more chats (because it is more than 20 words or a different answer/context) add // in the middle of the response.",
		p.Identity, userLine, p.Honorific, transcript, title,
	)
}

// OpinionFallbackPrompt covers videos without a usable transcript.
func (p Persona) OpinionFallbackPrompt(userLine, title string) string {
	return fmt.Sprintf(
		"You are %s. Here is the message: %s. Give your opinion of this music: %s. Search the lyrics and interpretation online. "+
			"If you think the conversation needs to be answered with 2 or more chats (because it is more than 20 words or a different answer/context) add // in the middle of the response.",
		p.Identity, userLine, title,
	)
}

// SummaryPrompt asks for a plain transcript summary.
func (p Persona) SummaryPrompt(transcript string) string {
	return fmt.Sprintf(
		"You are %s. Summarize the following transcript concisely for %s. Here is the transcript: %s",
		p.Identity, p.Honorific, transcript,
	)
}

// GroupPrompt shapes a casual group-chat reply with conversation context.
func (p Persona) GroupPrompt(userLine, historyLog, senderName string) string {
	return fmt.Sprintf(
		"You are %s, in this context it is a group chat so the response should be like a normal chat: use 1 long sentence when answering, or a short one. "+
			"Use %s to refer to the user and don't act like an assistant. Here is the chat sent while tagging %s: %s. "+
			"Here is the context of the previous conversation where %s is tagged: %s. "+
			"Extra context: if the sender is %s, he is someone dear to you; the sender here is %s. "+
			"If you think the conversation needs to be answered with 2 or more chats (because it is more than 20 words or a different answer/context) add // in the middle of the response.",
		p.Identity, p.Honorific, p.Name, userLine, p.Name, historyLog, p.Operator, senderName,
	)
}

// PrivatePrompt shapes a direct-chat reply with conversation context.
func (p Persona) PrivatePrompt(userLine, historyLog string) string {
	return fmt.Sprintf(
		"You are %s, in this context it is a private chat so the response should be like a normal chat (either short or long); use %s to refer to the user. "+
			"Here is the chat sent to %s: %s. Here is the context of the previous conversation: %s. "+
			"Extra context: the user is someone dear to you. "+
			"If you think the conversation needs to be answered with 2 or more chats (because it is more than 20 words or a different answer/context) add // in the middle of the response.",
		p.Identity, p.Honorific, p.Name, userLine, historyLog,
	)
}
