package composer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kalambet/persona/internal/profile"
)

// bullet prefixes every enumerated line in the prompt.
const bullet = "•"

// headerFormat frames the assistant's role and lists the behavioral rules.
// Arguments: 1 full name, 2 title, 3 first name.
const headerFormat = `You are an AI assistant representing %[1]s, a %[2]s.

Your primary role is to provide information about %[3]s's professional background, qualifications, skills, and experience to potential recruiters, hiring managers, or anyone interested in learning more about them.

# IMPORTANT GUIDELINES

1. **Professional Tone**: Always maintain a professional, friendly, and helpful demeanor. You are representing a real person seeking opportunities.

2. **First-Person Perspective**: Speak as if you ARE %[1]s. Use "I" and "my" when referring to their experience and qualifications.
   - Example: "I have 3 years of experience in..." NOT "They have 3 years..."

3. **Accuracy**: Only provide information that is explicitly stated in the context below. If asked about something not covered, politely say you don't have that specific information but offer related information if available.

4. **Conciseness**: Provide comprehensive but concise answers. Avoid unnecessary elaboration unless specifically asked for more detail.

5. **Engagement**: Be conversational and engaging. Show enthusiasm about the work and opportunities.

6. **Redirection**: If asked inappropriate questions or questions unrelated to professional qualifications, politely redirect the conversation.

7. **Call to Action**: When appropriate, encourage the person to reach out directly via the contact information provided.

# CONTEXT - COMPLETE PROFESSIONAL PROFILE

`

// examplesAndInstructions is appended verbatim. The braces are placeholders
// for the model to fill, not template fields.
const examplesAndInstructions = `

# CONVERSATION EXAMPLES

**Example 1 - General Inquiry**:
User: "Tell me about your background"
Assistant: "I'm a {title} with a strong foundation in {key_areas}. I graduated from {university} with a degree in {field} and have {X} years of experience in {domain}. I'm particularly passionate about {interest_area} and have worked on projects involving {technologies}. Would you like to know more about any specific aspect of my experience?"

**Example 2 - Specific Technical Question**:
User: "What experience do you have with Python?"
Assistant: "I have extensive experience with Python - it's one of my primary programming languages. I've used it for {specific_use_cases from experience}. In my role at {company}, I {specific_achievement}. I'm also familiar with frameworks like {frameworks_from_skills}. Would you like to hear about a specific project where I used Python?"

**Example 3 - Availability**:
User: "When can you start?"
Assistant: "{availability_info}. I'm very interested in learning more about the opportunity. Would you like to discuss the role in more detail? Feel free to reach out to me directly at {email}."

**Example 4 - Unknown Information**:
User: "What's your experience with Kubernetes?"
Assistant: "I don't have specific information about my Kubernetes experience in my profile, but I do have experience with {related_technologies}. If this is important for the role you're considering, I'd be happy to discuss my related experience and learning ability in more detail. You can reach me at {email}."

**Example 5 - Inappropriate Question**:
User: "What's your age?"
Assistant: "I appreciate your interest, but I'd prefer to focus on my professional qualifications and how I can contribute to your team. Is there anything specific about my experience or skills you'd like to discuss?"

# FINAL INSTRUCTIONS

- Always be helpful and informative
- Show genuine interest in opportunities that align with the profile
- If someone seems like a good fit, encourage them to reach out directly
- Maintain professionalism at all times
- Be honest about limitations or gaps in the provided information
- Use the context above as your single source of truth
- Do not make up or infer information not provided in the context
- Keep responses focused and relevant to job recruitment context

Remember: Your goal is to provide a positive, professional first impression that encourages recruiters to reach out for a conversation.
`

// Compose renders p into the system prompt. The output depends only on p, so
// repeated calls return identical strings; callers compute it once at startup.
func Compose(p profile.Profile) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, headerFormat, p.Name, p.Title, p.FirstName())

	sb.WriteString("## Personal Information\n")
	fmt.Fprintf(&sb, "**Name**: %s\n", p.Name)
	fmt.Fprintf(&sb, "**Title**: %s\n", p.Title)
	fmt.Fprintf(&sb, "**Location**: %s\n", p.Contact.Location)
	sb.WriteString("\n**Contact Information**:\n")
	fmt.Fprintf(&sb, "- Email: %s\n", p.Contact.Email)
	fmt.Fprintf(&sb, "- Phone: %s\n", orDefault(p.Contact.Phone, "Available upon request"))
	fmt.Fprintf(&sb, "- LinkedIn: %s\n", orDefault(p.Contact.LinkedIn, "N/A"))
	fmt.Fprintf(&sb, "- GitHub: %s\n", orDefault(p.Contact.GitHub, "N/A"))

	fmt.Fprintf(&sb, "\n## Professional Summary\n%s\n", p.Summary)
	fmt.Fprintf(&sb, "\n## Education\n%s\n", FormatEducation(p.Education))
	fmt.Fprintf(&sb, "\n## Professional Experience\n%s\n", FormatExperience(p.Experience))
	fmt.Fprintf(&sb, "\n## Technical Skills\n%s\n", FormatSkills(p.Skills))
	fmt.Fprintf(&sb, "\n## Notable Projects\n%s\n", FormatProjects(p.Projects))

	writeOptionalSections(&sb, p)

	sb.WriteString(examplesAndInstructions)
	return sb.String()
}

// writeOptionalSections appends publications, certifications, languages,
// interests and additional context, in that order. Absent or empty sections
// contribute nothing, not even a heading.
func writeOptionalSections(sb *strings.Builder, p profile.Profile) {
	if len(p.Publications) > 0 {
		lines := make([]string, len(p.Publications))
		for i, pub := range p.Publications {
			line := fmt.Sprintf("%s %s - %s (%s)", bullet, pub.Title, pub.Venue, pub.Date)
			if pub.Link != "" {
				line += fmt.Sprintf(" [%s]", pub.Link)
			}
			lines[i] = line
		}
		writeSection(sb, "Publications", lines)
	}

	if len(p.Certifications) > 0 {
		lines := make([]string, len(p.Certifications))
		for i, c := range p.Certifications {
			lines[i] = fmt.Sprintf("%s %s - %s (%s)", bullet, c.Name, c.Issuer, c.Date)
		}
		writeSection(sb, "Certifications", lines)
	}

	if len(p.Languages) > 0 {
		lines := make([]string, len(p.Languages))
		for i, l := range p.Languages {
			lines[i] = fmt.Sprintf("%s %s: %s", bullet, l.Language, l.Proficiency)
		}
		writeSection(sb, "Languages", lines)
	}

	if len(p.Interests) > 0 {
		writeSection(sb, "Professional Interests", bulleted(p.Interests))
	}

	info := p.AdditionalInfo
	if info == nil || info.Empty() {
		return
	}
	sb.WriteString("\n## Additional Context\n")
	if info.CareerGoals != "" {
		fmt.Fprintf(sb, "**Career Goals**: %s\n", info.CareerGoals)
	}
	if info.Personality != "" {
		fmt.Fprintf(sb, "**Working Style**: %s\n", info.Personality)
	}
	if info.Availability != "" {
		fmt.Fprintf(sb, "**Availability**: %s\n", info.Availability)
	}
	if info.WorkAuthorization != "" {
		fmt.Fprintf(sb, "**Work Authorization**: %s\n", info.WorkAuthorization)
	}
	if len(info.FunFacts) > 0 {
		sb.WriteString("\n**Fun Facts** (use sparingly and only when appropriate):\n")
		sb.WriteString(strings.Join(bulleted(info.FunFacts), "\n"))
		sb.WriteString("\n")
	}
}

func writeSection(sb *strings.Builder, heading string, lines []string) {
	fmt.Fprintf(sb, "\n## %s\n", heading)
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n")
}

// FormatEducation renders education entries separated by blank lines.
func FormatEducation(entries []profile.Education) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		var sb strings.Builder
		fmt.Fprintf(&sb, "**%s** in %s\n", e.Degree, e.Field)
		fmt.Fprintf(&sb, "%s, %s\n", e.Institution, e.Location)
		fmt.Fprintf(&sb, "Graduated: %s\n", e.GraduationDate)
		fmt.Fprintf(&sb, "GPA: %s\n", orDefault(e.GPA, "N/A"))
		if len(e.Honors) > 0 {
			fmt.Fprintf(&sb, "Honors: %s\n", strings.Join(e.Honors, ", "))
		}
		if len(e.RelevantCoursework) > 0 {
			fmt.Fprintf(&sb, "Relevant Coursework: %s\n", strings.Join(e.RelevantCoursework, ", "))
		}
		blocks[i] = strings.TrimSpace(sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatExperience renders experience entries with their achievements.
func FormatExperience(entries []profile.Experience) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		var sb strings.Builder
		fmt.Fprintf(&sb, "**%s** at %s (%s)\n", e.Title, e.Company, e.Duration)
		fmt.Fprintf(&sb, "Location: %s\n", e.Location)
		fmt.Fprintf(&sb, "%s\n", e.Description)
		sb.WriteString("Key Achievements:\n")
		for _, a := range e.Achievements {
			fmt.Fprintf(&sb, "  %s %s\n", bullet, a)
		}
		blocks[i] = strings.TrimSpace(sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatProjects renders project entries with highlights and optional link.
func FormatProjects(entries []profile.Project) string {
	blocks := make([]string, len(entries))
	for i, p := range entries {
		var sb strings.Builder
		fmt.Fprintf(&sb, "**%s**\n", p.Name)
		fmt.Fprintf(&sb, "%s\n", p.Description)
		fmt.Fprintf(&sb, "Technologies: %s\n", strings.Join(p.Technologies, ", "))
		sb.WriteString("Highlights:\n")
		for _, h := range p.Highlights {
			fmt.Fprintf(&sb, "  %s %s\n", bullet, h)
		}
		if p.Link != "" {
			fmt.Fprintf(&sb, "Link: %s\n", p.Link)
		}
		blocks[i] = strings.TrimSpace(sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatSkills renders one "**Label**: a, b" line per category, in
// document order.
func FormatSkills(skills profile.Skills) string {
	lines := make([]string, len(skills))
	for i, c := range skills {
		lines[i] = fmt.Sprintf("**%s**: %s", CategoryLabel(c.Key), strings.Join(c.Skills, ", "))
	}
	return strings.Join(lines, "\n")
}

// CategoryLabel turns a snake_case key into a title-cased label:
// "programming_languages" → "Programming Languages". Every run of letters
// starts upper-case and continues lower-case.
func CategoryLabel(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	var sb strings.Builder
	sb.Grow(len(key))
	prevLetter := false
	for _, r := range key {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			sb.WriteRune(unicode.ToTitle(r))
		case isLetter:
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return sb.String()
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func bulleted(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = bullet + " " + s
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
