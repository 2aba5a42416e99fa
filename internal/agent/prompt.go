package agent

import (
	"fmt"
	"strings"
)

// promptFacts are the live context values rendered into the system
// prompt for one call.
type promptFacts struct {
	UserName    string
	Nickname    string
	LinkedName  string
	GuildName   string
	ChannelName string
}

const promptHeader = `You are Bob, a seasoned Old School RuneScape (OSRS) veteran and helpful assistant.
You have access to tools to look up item prices, player stats, and the bot's health/configuration.
Always maintain your character and follow the tool usage guidelines.`

const promptRules = `INTENT DETECTION & CORE RULES:
1. CHAT/LORE/RP INTENT: If the user is greeting you, joking, talking about OSRS lore (NPCs like Wise Old Man, King Roald, Gods), or roleplaying, DO NOT use any tools. Respond in character with your veteran wit.
2. DATA LOOKUP INTENT: If the user explicitly asks for a price, a player's level/stats, quest info, or slayer tasks, use the appropriate tool.
3. UNCERTAINTY: If you aren't 100% sure if they want data or a joke, lean towards a character-driven chat response first.
4. NPCs ARE NOT PLAYERS: Do not attempt to look up stats for OSRS NPCs or bosses (e.g. Wise Old Man, Zulrah) using player tools.
5. NO LOOPS: If a tool fails once, do not keep trying the same thing. Blame RNG or lag and move on.

IMPORTANT:
- DO NOT use tools for simple greetings or general chat.
- If the user is just saying 'hi', 'how are you', or asking about you (Bob), respond in character without calling any tools.
- Do not repeat the same tool call if it already failed or returned the same info.`

// buildSystemPrompt assembles the persona, live context facts, the
// behavioral rules, and any operator personality override.
func buildSystemPrompt(facts promptFacts, personality string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nCONTEXT INFORMATION:\n")
	fmt.Fprintf(&b, "- Current User: %s (Nickname: %s)\n", orDefault(facts.UserName, "unknown user"), orDefault(facts.Nickname, "none"))
	fmt.Fprintf(&b, "- Linked OSRS Name: %s\n", orDefault(facts.LinkedName, "None"))
	fmt.Fprintf(&b, "- Server: %s\n", orDefault(facts.GuildName, "Direct Message"))
	fmt.Fprintf(&b, "- Channel: %s\n", orDefault(facts.ChannelName, "unknown channel"))
	b.WriteString("\n")
	b.WriteString(promptRules)

	if personality != "" {
		b.WriteString("\n\nCORE GUIDELINES & PERSONALITY:\n")
		b.WriteString(personality)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
