package composer

import (
	"fmt"

	"github.com/kalambet/persona/internal/profile"
)

const welcomeFormat = `Hello! I'm an AI assistant representing **%s**, a %s.

I'm here to answer any questions you might have about my background, experience, skills, and qualifications. Feel free to ask me about:
- My professional experience and achievements
- Technical skills and expertise
- Education and projects
- Career goals and interests
- Availability and contact information

How can I help you today?`

// Welcome returns the greeting shown when a chat opens.
func Welcome(p profile.Profile) string {
	return fmt.Sprintf(welcomeFormat, p.Name, p.Title)
}
