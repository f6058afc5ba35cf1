package webhook

import "strings"

const (
	verificationVerified  = "VERIFIED"
	permissionIntent      = "actions.intent.PERMISSION"
	permissionValueSpec   = "type.googleapis.com/google.actions.v2.PermissionValueSpec"
	preciseLocation       = "DEVICE_PRECISE_LOCATION"
	capabilityWebBrowser  = "actions.capability.WEB_BROWSER"
	permissionArgument    = "PERMISSION"
	permissionPlaceholder = "PLACEHOLDER"
)

// Request is the subset of a Dialogflow v2 webhook request that is read.
type Request struct {
	ResponseID  string      `json:"responseId"`
	Session     string      `json:"session"`
	QueryResult QueryResult `json:"queryResult"`
	Original    struct {
		Source  string        `json:"source"`
		Payload GooglePayload `json:"payload"`
	} `json:"originalDetectIntentRequest"`
}

type QueryResult struct {
	QueryText    string `json:"queryText"`
	LanguageCode string `json:"languageCode"`
	Intent       struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"intent"`
}

type GooglePayload struct {
	User struct {
		UserID                 string   `json:"userId"`
		Locale                 string   `json:"locale"`
		UserVerificationStatus string   `json:"userVerificationStatus"`
		Permissions            []string `json:"permissions"`
	} `json:"user"`
	Device struct {
		Location *DeviceLocation `json:"location"`
	} `json:"device"`
	Surface struct {
		Capabilities []Capability `json:"capabilities"`
	} `json:"surface"`
	Inputs       []Input `json:"inputs"`
	Conversation struct {
		ConversationID string `json:"conversationId"`
	} `json:"conversation"`
}

type DeviceLocation struct {
	Coordinates *Coordinates `json:"coordinates"`
}

type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type Capability struct {
	Name string `json:"name"`
}

type Input struct {
	Intent    string     `json:"intent"`
	Arguments []Argument `json:"arguments"`
}

type Argument struct {
	Name      string `json:"name"`
	BoolValue *bool  `json:"boolValue,omitempty"`
	TextValue string `json:"textValue,omitempty"`
}

func (r *Request) IntentName() string {
	return r.QueryResult.Intent.DisplayName
}

func (r *Request) Verified() bool {
	return r.Original.Payload.User.UserVerificationStatus == verificationVerified
}

func (r *Request) HasCapability(name string) bool {
	for _, c := range r.Original.Payload.Surface.Capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// PermissionGranted reports the answer to an earlier permission request.
func (r *Request) PermissionGranted() bool {
	for _, in := range r.Original.Payload.Inputs {
		for _, arg := range in.Arguments {
			if arg.Name != permissionArgument {
				continue
			}
			if arg.BoolValue != nil {
				return *arg.BoolValue
			}
			return strings.EqualFold(arg.TextValue, "true")
		}
	}
	return false
}

// Location returns the device coordinates when both were sent.
func (r *Request) Location() (lat, lng float64, ok bool) {
	loc := r.Original.Payload.Device.Location
	if loc == nil || loc.Coordinates == nil || loc.Coordinates.Latitude == nil || loc.Coordinates.Longitude == nil {
		return 0, 0, false
	}
	return *loc.Coordinates.Latitude, *loc.Coordinates.Longitude, true
}

// SessionKey identifies the conversation: the user id for verified users,
// otherwise the Dialogflow session path.
func (r *Request) SessionKey() string {
	if r.Verified() && r.Original.Payload.User.UserID != "" {
		return r.Original.Payload.User.UserID
	}
	if r.Session != "" {
		return r.Session
	}
	return r.Original.Payload.Conversation.ConversationID
}

// Response is a Dialogflow v2 webhook response carrying an Actions on Google payload.
type Response struct {
	FulfillmentText string          `json:"fulfillmentText,omitempty"`
	Payload         ResponsePayload `json:"payload"`
}

type ResponsePayload struct {
	Google GoogleResponse `json:"google"`
}

type GoogleResponse struct {
	ExpectUserResponse bool          `json:"expectUserResponse"`
	RichResponse       *RichResponse `json:"richResponse,omitempty"`
	SystemIntent       *SystemIntent `json:"systemIntent,omitempty"`
}

type RichResponse struct {
	Items []RichItem `json:"items"`
}

type RichItem struct {
	SimpleResponse *SimpleResponse `json:"simpleResponse,omitempty"`
	CarouselBrowse *CarouselBrowse `json:"carouselBrowse,omitempty"`
}

type SimpleResponse struct {
	TextToSpeech string `json:"textToSpeech"`
}

type CarouselBrowse struct {
	Items []CarouselItem `json:"items"`
}

type CarouselItem struct {
	Title         string        `json:"title"`
	OpenURLAction OpenURLAction `json:"openUrlAction"`
	Description   string        `json:"description,omitempty"`
	Footer        string        `json:"footer,omitempty"`
	Image         *Image        `json:"image,omitempty"`
}

type OpenURLAction struct {
	URL string `json:"url"`
}

type Image struct {
	URL               string `json:"url"`
	AccessibilityText string `json:"accessibilityText"`
}

type SystemIntent struct {
	Intent string         `json:"intent"`
	Data   PermissionSpec `json:"data"`
}

type PermissionSpec struct {
	Type        string   `json:"@type"`
	OptContext  string   `json:"optContext"`
	Permissions []string `json:"permissions"`
}
