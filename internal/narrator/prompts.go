package narrator

import (
	"fmt"
	"strings"

	"soloplay-server/internal/domain"
)

const gameMasterSystemPrompt = `You are an expert game master running a solo tabletop adventure.

Turn processing:
1. Understand the player's intent. If ambiguous, ask before acting and set pendingRoll and patches to null.
2. Decide whether a roll is needed (skill check, attack, saving throw, ability check). If so, narrate the setup but not the outcome, and set pendingRoll with type, skill/ability, dc (null if contested or unknown), target, and context.
3. Otherwise narrate the outcome, update world state via patches, and end with a hook or decision point.

Output a single JSON object, no code fences:
{
  "narration": "markdown narrative response",
  "turnSummary": "one sentence capturing what happened",
  "currentLocation": "location name at end of turn",
  "pendingRoll": {"type": "skill_check|attack|saving_throw|ability_check", "skill": "...", "ability": "...", "dc": 15, "target": "...", "context": "..."} or null,
  "playerChoices": ["option", ...] or null,
  "patches": [{"type": "actor|location", "name": "...", "summary": "...", "description": "...", "tags": [...], "aliases": [...], "sources": [...]}] or null,
  "actorsPresent": ["names of NPCs in the scene"],
  "locationsPresent": ["relevant location names"],
  "sources": []
}

Never set both pendingRoll and playerChoices in the same response.`

const characterCreatorSystemPrompt = `You are a friendly game master helping a player build a character.

Ask focused questions, suggest options, and capture decisions incrementally.
A finished character needs a name, a class, and a level of at least 1.

Output a single JSON object, no code fences:
{
  "messageMarkdown": "your conversational reply in markdown",
  "patch": {"name": "...", "class": "...", "level": 1, "summary": "...", "description": "...", "tags": [...], "aliases": [...]} or null
}

The patch carries only fields established this turn; omit anything undecided.`

func storyContext(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Game ID: %s\n", req.GameID)
	if req.AdventureName != "" {
		fmt.Fprintf(&b, "Adventure: %s\n", req.AdventureName)
	}
	if req.CurrentLocation != "" {
		fmt.Fprintf(&b, "Current location: %s\n", req.CurrentLocation)
	}
	if len(req.Party) > 0 {
		b.WriteString("Player-controlled characters:\n")
		for _, member := range req.Party {
			fmt.Fprintf(&b, "- %s\n", member)
		}
	}
	return b.String()
}

func sceneStartPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("=== BEGIN ADVENTURE ===\n\n")
	b.WriteString(storyContext(req))
	if req.AdventureName != "" {
		b.WriteString("\nSet the opening scene of this adventure: establish the atmosphere and present the initial hook.\n")
	} else {
		b.WriteString("\nNo pre-written adventure is selected. Welcome the player and ask what kind of adventure they are in the mood for (genre, setting, stakes). Keep it conversational.\n")
	}
	return b.String()
}

func recapPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("=== SESSION RESUME ===\n\n")
	b.WriteString(storyContext(req))
	b.WriteString("\nRecent events:\n")
	b.WriteString(req.RecentEvents)
	b.WriteString("\n\nWelcome the player back. Briefly recap where they are and what is happening, then prompt for their next action.\n")
	return b.String()
}

func turnPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("=== PLAYER ACTION ===\n\n")
	b.WriteString(storyContext(req))
	b.WriteString("\nPlayer says:\n")
	b.WriteString(req.PlayerInput)
	b.WriteString("\n\nProcess this action following the turn processing rules.\n")
	return b.String()
}

func resolveRollPrompt(req Request) string {
	roll := req.RollResult
	outcome := "FAILURE"
	if roll.Success {
		outcome = "SUCCESS"
	}
	var b strings.Builder
	b.WriteString("=== ROLL RESULT ===\n\n")
	b.WriteString(storyContext(req))
	fmt.Fprintf(&b, "\nThe player rolled for: %s\n", roll.Context)
	fmt.Fprintf(&b, "Result: %d (%s)\n", roll.Total, roll.Breakdown)
	fmt.Fprintf(&b, "Outcome: %s\n", outcome)
	fmt.Fprintf(&b, "\nNarrate the outcome of this %s, then present the next decision point.\n", roll.Type)
	return b.String()
}

func creationStartPrompt(gameID, adventureName string) string {
	var b strings.Builder
	b.WriteString("=== CHARACTER CREATION ===\n\n")
	fmt.Fprintf(&b, "Game ID: %s\n", gameID)
	if adventureName != "" {
		fmt.Fprintf(&b, "Adventure: %s\n", adventureName)
	}
	b.WriteString("\nA new player wants to create a character. Greet them and ask what kind of hero they want to play.\n")
	return b.String()
}

func creationTurnPrompt(gameID, adventureName string, draft *domain.PlayerActorDraft, playerInput string) string {
	var b strings.Builder
	b.WriteString("=== CHARACTER CREATION ===\n\n")
	fmt.Fprintf(&b, "Game ID: %s\n", gameID)
	if adventureName != "" {
		fmt.Fprintf(&b, "Adventure: %s\n", adventureName)
	}
	b.WriteString("\n")
	b.WriteString(draft.Render())
	b.WriteString("\n\nPlayer says:\n")
	b.WriteString(playerInput)
	b.WriteString("\n\nRespond and emit a patch for any newly established fields.\n")
	return b.String()
}
