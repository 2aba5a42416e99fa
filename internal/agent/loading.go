package agent

import "math/rand/v2"

// LoadingMessages are the in-character placeholders shown while a
// generation call is in flight.
var LoadingMessages = []string{
	"One moment, just checking the G.E. prices...",
	"Consulting the Wise Old Man... hold your capes.",
	"Just finishing this herb run, I'll be with you in a tick!",
	"Hold on, I've got a random event to deal with... sandwich lady is persistent.",
	"Checking the highscores... don't expect too much.",
	"RNG is taking its time today, one second...",
	"Lagging a bit, must be a world DC coming. Hang on...",
	"Let me just bank these logs first...",
	"One sec, trying to find my spade. It's always in the last place you look!",
	"Just hopping worlds to find a quiet spot to think...",
	"Hold on, need to drink a dose of prayer pot...",
	"Panic selling my bank to afford the latest meta, be right with you...",
	"Just getting a quick trim for my armor, should be done soon...",
	"Buying GF 10k, hang on...",
	"Getting sit by Zulrah, one moment...",
	"Drinking a dose of stamina pot for the long thinking sprint...",
	"Looking for a world that isn't full of bots...",
	"Adjusting my mouse sensitivity for some tick-perfect responses...",
}

// RandomLoadingMessage picks one of the loading lines.
func RandomLoadingMessage() string {
	return LoadingMessages[rand.IntN(len(LoadingMessages))]
}
