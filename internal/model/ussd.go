package model

// USSDResponse is what goes back to the gateway. Continue=true is rendered
// with the "CON " prefix (session stays open), false with "END ".
type USSDResponse struct {
	Continue bool
	Text     string
}
