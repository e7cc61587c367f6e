package judge

import (
	"fmt"
	"strings"

	"github.com/spacesedan/buzzdigest/internal/models"
)

const promptTemplate = `Judge how relevant the following article is to the reader.

# Reader interest profile
%s

# Article
- Title: %s
- URL: %s
- Description: %s
- Source: %s

# Criteria
**interest_label**:
%s

**confidence**: how sure you are of the label, from 0.0 to 1.0
**summary**: a short summary of the article for the digest email (at most %d characters)
**tags**: 1-3 technical keywords describing the article (e.g. "Kotlin", "Claude", "AWS")

# Output format
Reply with a JSON object with these keys:
{
  "interest_label": "ACT_NOW" | "THINK" | "FYI" | "IGNORE",
  "confidence": 0.85,
  "summary": "short summary of the article",
  "tags": ["Kotlin", "Claude"]
}

Output nothing but the JSON.`

// BuildPrompt renders the judgment prompt for one article. It depends only
// on its arguments.
func BuildPrompt(profile models.InterestProfile, a models.Article) string {
	return fmt.Sprintf(promptTemplate,
		profile.FormatForPrompt(),
		oneLine(a.Title),
		a.URL,
		oneLine(a.Description),
		a.SourceName,
		profile.FormatCriteriaForPrompt(),
		models.MaxSummaryLength,
	)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
