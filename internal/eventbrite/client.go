package eventbrite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://www.eventbriteapi.com/v3"

	mainListTicketClass = "Liste Principale"
	birthdateQuestion   = "date de naissance"
)

type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	CellPhone string `json:"cell_phone"`
}

type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Attendee is one registration on an event. Birthdate is lifted out of the
// custom-question answers during fetch; attendees are immutable once built
// and replaced wholesale on refresh.
type Attendee struct {
	Profile         Profile  `json:"profile"`
	Created         string   `json:"created"`
	TicketClassName string   `json:"ticket_class_name"`
	Birthdate       string   `json:"birthdate,omitempty"`
	Answers         []Answer `json:"answers,omitempty"`
}

type EventName struct {
	Text string `json:"text"`
}

type EventStart struct {
	Local string `json:"local"`
}

type Event struct {
	ID    string     `json:"id"`
	Name  EventName  `json:"name"`
	Start EventStart `json:"start"`
	URL   string     `json:"url"`
}

// Roster is the result of a full attendee fetch for the next live event.
type Roster struct {
	EventID   string     `json:"event_id"`
	EventName string     `json:"event_name"`
	EventDate string     `json:"event_date"`
	EventURL  string     `json:"event_url"`
	Attendees []Attendee `json:"attendees"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// SearchHit is one event where a searched person was found registered.
type SearchHit struct {
	EventName string `json:"event_name"`
	StartDate string `json:"start_date"`
}

type organizationsResponse struct {
	Organizations []struct {
		ID string `json:"id"`
	} `json:"organizations"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

type attendeesResponse struct {
	Attendees  []Attendee `json:"attendees"`
	Pagination struct {
		HasMoreItems bool `json:"has_more_items"`
	} `json:"pagination"`
}

type apiError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// TokenSource yields a bearer token for API calls, running the
// authorization flow if no cached token is usable.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token, used in tests and
// for personal OAuth tokens supplied out of band.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

func New(baseURL string, tokens TokenSource) *Client {
	return NewWithClient(baseURL, tokens, &http.Client{Timeout: 45 * time.Second})
}

func NewWithClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
	}
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain access token: %w", err)
	}

	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		blob, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(blob, &apiErr) == nil {
			detail := strings.TrimSpace(apiErr.Description)
			if detail == "" {
				detail = strings.TrimSpace(apiErr.Error)
			}
			if detail != "" {
				return fmt.Errorf("api GET %s: %s", path, detail)
			}
		}
		return fmt.Errorf("api GET %s failed with status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// OrganizationID returns the first organization the token belongs to.
func (c *Client) OrganizationID(ctx context.Context) (string, error) {
	var response organizationsResponse
	if err := c.doJSON(ctx, "/users/me/organizations/", nil, &response); err != nil {
		return "", err
	}
	if len(response.Organizations) == 0 {
		return "", fmt.Errorf("no organizations for this account")
	}
	return response.Organizations[0].ID, nil
}

// NextEvent returns the soonest live event of the organization.
func (c *Client) NextEvent(ctx context.Context, orgID string) (*Event, error) {
	query := url.Values{}
	query.Set("order_by", "start_asc")
	query.Set("status", "live")
	var response eventsResponse
	path := fmt.Sprintf("/organizations/%s/events/", url.PathEscape(orgID))
	if err := c.doJSON(ctx, path, query, &response); err != nil {
		return nil, err
	}
	if len(response.Events) == 0 {
		return nil, fmt.Errorf("no upcoming live event")
	}
	event := response.Events[0]
	return &event, nil
}

// EventAttendees fetches every attendee page of an event, in API order,
// extracting the birthdate answer along the way.
func (c *Client) EventAttendees(ctx context.Context, eventID string) ([]Attendee, error) {
	attendees := []Attendee{}
	path := fmt.Sprintf("/events/%s/attendees/", url.PathEscape(eventID))

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		var response attendeesResponse
		if err := c.doJSON(ctx, path, query, &response); err != nil {
			return nil, fmt.Errorf("attendees page %d: %w", page, err)
		}
		for _, attendee := range response.Attendees {
			for _, answer := range attendee.Answers {
				if strings.ToLower(answer.Question) == birthdateQuestion {
					attendee.Birthdate = answer.Answer
					break
				}
			}
			attendees = append(attendees, attendee)
		}
		if !response.Pagination.HasMoreItems {
			break
		}
	}
	return attendees, nil
}

// FetchRoster resolves the organization, finds its next live event, and
// returns the sorted attendee list for it.
func (c *Client) FetchRoster(ctx context.Context) (*Roster, error) {
	orgID, err := c.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	event, err := c.NextEvent(ctx, orgID)
	if err != nil {
		return nil, err
	}
	attendees, err := c.EventAttendees(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	sortAttendees(attendees)

	return &Roster{
		EventID:   event.ID,
		EventName: event.Name.Text,
		EventDate: formatEventDate(event.Start.Local),
		EventURL:  event.URL,
		Attendees: attendees,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// SearchByName scans completed and live events for an attendee whose first
// and last name both match, case-insensitively. Hits keep the API's event
// ordering (start date descending).
func (c *Client) SearchByName(ctx context.Context, firstName, lastName string) ([]SearchHit, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("first and last name are required")
	}

	orgID, err := c.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("order_by", "start_desc")
	query.Set("status", "completed,live")
	var response eventsResponse
	path := fmt.Sprintf("/organizations/%s/events/", url.PathEscape(orgID))
	if err := c.doJSON(ctx, path, query, &response); err != nil {
		return nil, err
	}

	hits := []SearchHit{}
	for _, event := range response.Events {
		attendees, err := c.EventAttendees(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		for _, attendee := range attendees {
			if strings.EqualFold(attendee.Profile.FirstName, firstName) &&
				strings.EqualFold(attendee.Profile.LastName, lastName) {
				hits = append(hits, SearchHit{
					EventName: event.Name.Text,
					StartDate: formatEventDate(event.Start.Local),
				})
				break
			}
		}
	}
	return hits, nil
}

// sortAttendees puts the main-list ticket class first, then most recent
// registration first.
func sortAttendees(attendees []Attendee) {
	sort.SliceStable(attendees, func(i, j int) bool {
		iMain := attendees[i].TicketClassName == mainListTicketClass
		jMain := attendees[j].TicketClassName == mainListTicketClass
		if iMain != jMain {
			return iMain
		}
		return attendees[i].Created > attendees[j].Created
	})
}

func formatEventDate(local string) string {
	parsed, err := time.Parse("2006-01-02T15:04:05", local)
	if err != nil {
		return "<invalid date>"
	}
	return parsed.Format("02/01/2006")
}
