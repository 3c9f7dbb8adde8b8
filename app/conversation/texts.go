package conversation

import "strings"

// Texts holds every user-visible reply.
type Texts struct {
	Greeting string
	// Chosen may contain {department}.
	Chosen            string
	NotInList         string
	OnlyPhotos        string
	MissingCaption    string
	MissingDepartment string
	Sent              string
	Failed            string
	Cancelled         string
	NotStarted        string
}

// DefaultTexts returns the built-in English replies.
func DefaultTexts() Texts {
	return Texts{
		Greeting:          "Hello! Choose the department you want to send a photo to:",
		Chosen:            "You chose: {department}. Now send a photo with the person's full name as its caption.",
		NotInList:         "Please choose a department from the list.",
		OnlyPhotos:        "This type of content is not accepted. Please send a photo.",
		MissingCaption:    "Something went wrong. Start again with /start and be sure to add the full name as the photo caption.",
		MissingDepartment: "Something went wrong. Please start again with /start.",
		Sent:              "The photo was sent successfully!",
		Failed:            "Failed to send the photo. Please try again later.",
		Cancelled:         "Cancelled.",
		NotStarted:        "Send /start to choose a department.",
	}
}

// Merge returns t with every non-blank field of o applied on top.
func (t Texts) Merge(o Texts) Texts {
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&t.Greeting, o.Greeting)
	pick(&t.Chosen, o.Chosen)
	pick(&t.NotInList, o.NotInList)
	pick(&t.OnlyPhotos, o.OnlyPhotos)
	pick(&t.MissingCaption, o.MissingCaption)
	pick(&t.MissingDepartment, o.MissingDepartment)
	pick(&t.Sent, o.Sent)
	pick(&t.Failed, o.Failed)
	pick(&t.Cancelled, o.Cancelled)
	pick(&t.NotStarted, o.NotStarted)
	return t
}

func (t Texts) chosen(department string) string {
	return strings.ReplaceAll(t.Chosen, "{department}", department)
}
