package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/sells-group/outreach-cli/internal/model"
)

// NoCalendarLink is substituted when the sender has no calendar link.
const NoCalendarLink = "Request for calendar link in email"

const companiesPrompt = `MISSION: Find exactly %d high-quality B2B prospect companies that are strong fits for our offering.

TARGET CRITERIA:
%s

OUR OFFERING:
%s

REQUIREMENTS:
- Companies actively growing or investing in relevant areas
- 50+ employees unless the target is explicitly SMB
- Professional web presence and a clear revenue model
- Active within the last 18 months (news, hiring, product updates)

For each company provide: name, website, why_fit, employee_count, growth_signals.
Quality over quantity. Reject poor fits.`

const contactsPrompt = `MISSION: Find 2-4 decision makers per company who would evaluate, influence or champion our offering.

TARGET CONTEXT:
%s

OUR OFFERING:
%s

COMPANIES TO RESEARCH:
%s

CONTACT REQUIREMENTS:
- Director level or above, or equivalent influence
- Recently active on LinkedIn or in company content
- Clear connection to the offering area
- Professional email discoverable or inferable

Return format: {"companies": [{"name": "Company", "contacts": [{"full_name": "Name", "title": "Title", "email": "email@company.com", "inferred": false, "source": "source", "last_activity": "description"}]}]}`

const phonesPrompt = `MISSION: Find professional phone numbers for the contacts below.

CONTACTS TO RESEARCH:
%s

PRIORITIES: direct dial, mobile, office with extension, main office line.
Mark verified=true only for official company sources. Include country codes when available.

Return format: {"companies": [{"name": "Company", "contacts": [{"full_name": "Name", "phone_number": "+1-555-123-4567", "phone_type": "direct", "verified": true, "source": "source"}]}]}`

const researchPrompt = `MISSION: Gather 3-5 specific, recent insights per company that show genuine research in an outreach email.

COMPANIES TO RESEARCH:
%s

OBJECTIVES:
- Recent news, developments or changes from the last 12 months
- Growth signals, challenges or opportunities
- Authentic opinions from Reddit or forums
- Details specific enough to prove real research

Return format: {"companies": [{"name": "Company", "insights": ["Specific insight with context and source"]}]}`

const emailsPrompt = `MISSION: Write a personalized outreach email for each contact below.

SENDER CONTEXT:
Name: %s
Company: %s
Offering: %s
Calendar: %s

CONTACTS:
%s

RESEARCH INSIGHTS:
%s

REQUIREMENTS:
- Use specific research insights, not generic industry observations
- Connect the insights to the value proposition
- Personalize for the recipient's role and priorities
- Compelling subject line and a clear call to action

Return format: {"emails": [{"company": "Company", "contact": "Contact Name", "subject": "Subject", "body": "Email body", "personalization_used": "What insight was used"}]}`

// Companies builds the company discovery prompt.
func Companies(target, offering string, maxCompanies int) string {
	return fmt.Sprintf(companiesPrompt, maxCompanies, target, offering)
}

// Contacts builds the contact discovery prompt.
func Contacts(companies []model.Company, target, offering string) string {
	return fmt.Sprintf(contactsPrompt, target, offering, indentJSON(companies))
}

// Phones builds the phone discovery prompt.
func Phones(contacts []model.ContactGroup) string {
	return fmt.Sprintf(phonesPrompt, indentJSON(contacts))
}

// Research builds the research prompt.
func Research(companies []model.Company) string {
	return fmt.Sprintf(researchPrompt, indentJSON(companies))
}

// Emails builds the email drafting prompt.
func Emails(contacts []model.ContactGroup, research []model.ResearchGroup, offering string, sender model.Sender) string {
	calendar := sender.CalendarLink
	if calendar == "" {
		calendar = NoCalendarLink
	}
	return fmt.Sprintf(emailsPrompt, sender.Name, sender.Company, offering, calendar,
		indentJSON(contacts), indentJSON(research))
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
