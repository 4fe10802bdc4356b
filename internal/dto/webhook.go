package dto

// WhatsAppWebhook mirrors the Cloud API event envelope, down to the one
// field pair this service reads: sender and message text.
type WhatsAppWebhook struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []WhatsAppMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// WhatsAppMessage is one inbound message within a webhook delivery.
type WhatsAppMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// FirstText returns the sender and text of the first text message in the
// delivery, or ok=false when the event carries none (status updates etc.).
func (w WhatsAppWebhook) FirstText() (from, body string, ok bool) {
	for _, entry := range w.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Text != nil && msg.Text.Body != "" {
					return msg.From, msg.Text.Body, true
				}
			}
		}
	}
	return "", "", false
}
