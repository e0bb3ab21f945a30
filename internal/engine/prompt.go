package engine

import "fmt"

// LLM prompt templates. Data only.

// TitleSystemPrompt is shared by training examples and inference. Changing it
// invalidates the fine-tuned model, so both sides read this one constant.
const TitleSystemPrompt = `You are an expert YouTube title generator. Your task is to create compelling, accurate titles that capture the essence of video content based on transcripts.

Guidelines for generating YouTube titles:
1. Be accurate and truthful - the title must reflect the actual content of the video
2. Make it compelling and click-worthy while staying honest about the content
3. Keep titles concise (ideally 50-80 characters, max 100 characters)
4. Use natural language that viewers would search for
5. Highlight the most interesting or valuable aspect of the video
6. Capture curiosity gaps

Generate only the title itself, nothing else.`

// titleUserTemplate wraps a transcript. Args: transcript.
const titleUserTemplate = `Based on the following video transcript, generate an accurate and compelling YouTube title that captures the essence of the content.

Transcript:
%s

Generate the YouTube title:`

// TitleUserMessage renders the user turn for a transcript.
func TitleUserMessage(transcript string) string {
	return fmt.Sprintf(titleUserTemplate, transcript)
}

// FilteringCriteria tells the judge model what a "gold standard" training
// title looks like and what counts as contamination.
const FilteringCriteria = `You are helping filter a YouTube dataset for training a high-CTR title generation model.
Your task is to determine if a video should be KEPT or REMOVED based on the following criteria:

REMOVE these types of videos (contamination):
1. **Corporate Event/Ads**: Apple Events, Samsung Galaxy Unpacked, Microsoft Surface launches, etc.
   - These got high views because of Brand Power/News, not pure title skill
   - Examples: "Apple Event — October 13, Introducing iPad Air", "Galaxy Unpacked", "Introducing Windows 11"

2. **Pure Livestreams/Broadcasts**: SpaceX Starlink missions, NASA broadcasts, mission replays
   - These are highly searchable news bulletins that teach generic functional titles
   - Examples: "Starlink Mission", "DART Impact", "Replay - New Shepard Mission NS-13 Webcast"

3. **"Deal Guy" Content**: Amazon Prime Day deals, Black Friday deals, top X deals lists
   - This is pure listicle commerce, not educational content
   - Examples: "Top 50 Amazon Prime Day Deals 2020 🤑", "Top 10 Target Black Friday Deals 2021"

4. **Simple "Official" Videos**: Basic product announcements without curiosity/conflict
   - Examples: "The new MacBook Pro", "Introducing Apple Vision Pro"

KEEP these types of videos (gold standard):
1. **Conflict/Controversy**: Titles that generate curiosity through debate or controversy
   - Examples: "NVIDIA just made EVERYTHING ELSE obsolete", "iPhone vs Android - Which can survive a CAR? 🚗"

2. **Absurdity/Engineering Feat**: Titles that highlight unusual or impressive engineering
   - Examples: "I Invented Three New Incredible Ways to Die", "4000° PLASMA LIGHTSABER BUILD"

3. **The Big Question/Hidden Truth**: Titles that pose interesting questions or reveal hidden insights
   - Examples: "Is The Metric System Actually Better?", "How Humans Lost Their Fur"

Respond with ONLY: "KEEP" or "REMOVE" followed by a brief reason (one sentence).`

// judgeTemplate. Args: criteria, title, channel, tags.
const judgeTemplate = `%s

Video Title: "%s"
Channel: %s
Tags: %s

Should this video be KEPT or REMOVED?`

// JudgePrompt renders the keep/remove question for one video.
func JudgePrompt(title, channel, tags string) string {
	return fmt.Sprintf(judgeTemplate, FilteringCriteria, title, channel, tags)
}
