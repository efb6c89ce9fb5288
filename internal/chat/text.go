package chat

import "fmt"

const masterGreeting = "Hi! I'm your master coach. Ask me anything about your goals, or pick a goal to plan concrete next steps."

func goalGreeting(title string) string {
	return fmt.Sprintf("Hi! I'm your AI coach for %s. Let's break this down into manageable steps!", title)
}

func confirmationText(added int, goalTitle string) string {
	noun := "tasks"
	if added == 1 {
		noun = "task"
	}
	return fmt.Sprintf("Perfect! I've added %d %s to your %q goal. You can view and manage them in the Tasks tab. Keep up the great work!", added, noun, goalTitle)
}
