package llm

import "fmt"

// clickbaitArticleCriteria is the scoring rubric sent as the system
// instruction for article analysis. Each criterion scores 0-2; a total of 5
// or more out of 10 means clickbait.
const clickbaitArticleCriteria = `When evaluating whether the title is clickbait, please consider the following criteria. Each criterion should be scored on a scale of 0-2:
- 0: Does not apply.
- 1: Partially applies.
- 2: Fully applies.

1. Does the title exaggerate or sensationalize the content to attract clicks?
   - Look for words or phrases that seem overly dramatic or extreme compared to the article content.

2. Does the title use misleading or ambiguous language to create curiosity?
   - Identify if the title uses vague language that could mean multiple things, prompting curiosity without providing clarity.

3. Does the title promise more than what the article delivers?
   - Check if the title suggests information, results, or content that the article fails to provide.

4. The title can use emotionally charged words or phrases or imagery to provoke a reaction as long as the article backs up the claims.
   - Ensure that any strong emotional appeal in the title is justified by the article content.

5. If the title poses a question, it is not clickbait if the article answers the question.

Calculate the total score based on the above criteria. If the total score is 5 or higher out of 10, consider the title clickbait. Otherwise, it is not clickbait. The clarity score is 10 minus the total score.

Please follow these criteria closely and provide specific evidence from the article content for your conclusions.`

// clickbaitVideoCriteria is the rubric variant for YouTube videos, judging
// title and thumbnail against the transcript.
const clickbaitVideoCriteria = `When evaluating whether the YouTube video thumbnail or title is clickbait, please consider the following criteria. Each criterion should be scored on a scale of 0-2:
- 0: Does not apply.
- 1: Partially applies.
- 2: Fully applies.

1. Does the title or thumbnail exaggerate or sensationalize the content to attract clicks?
   - Look for words or images that seem overly dramatic or extreme compared to the video content.

2. Does the title or thumbnail use misleading or ambiguous language or images to create curiosity?
   - Identify if the title or thumbnail uses vague language or images that could mean multiple things, prompting curiosity without providing clarity.

3. Does the title or thumbnail promise more than what the video delivers?
   - Check if the title or thumbnail suggests information, results, or content that the video fails to provide.

4. The title or thumbnail can use emotionally charged words, phrases, or imagery to provoke a reaction as long as the video backs up the claims.
   - Ensure that any strong emotional appeal in the title or thumbnail is justified by the video content.

Calculate the total score based on the above criteria. If the total score is 5 or higher out of 10, consider the video clickbait. Otherwise, it is not clickbait. The clarity score is 10 minus the total score.

Please follow these criteria closely and provide specific evidence from the video content for your conclusions.`

// responseFormat is appended to every prompt so the reply can be parsed
// mechanically.
const responseFormat = `Return the information in the following JSON format:
{
    "title": "string",
    "isClickBait": boolean,
    "clarityScore": number,
    "explanation": "string",
    "answer": "string",
    "summary": "string"
}`

// Clarity score definitions are prepended to the stored explanation so the
// client can render the verdict without knowing the rubric.
const (
	clarityScoreDefinitionArticle = "The clarity score rates, from 0 to 10, how honestly the headline reflects the article; higher means clearer. "
	clarityScoreDefinitionVideo   = "The clarity score rates, from 0 to 10, how honestly the title and thumbnail reflect the video; higher means clearer. "
)

// articlePrompt builds the user prompt for an article analysis with the
// literal extracted fields.
func articlePrompt(title, subtitle, content string) string {
	return fmt.Sprintf(`Here is an article scraped from the internet. It may include unwanted text tags or irrelevant content. Please ignore any such unwanted text/tags. Also, can you clean up the title if you think it includes unnecessary words that seem to be added on to the title.
It may include html or css code, please ignore them and focus solely on the content.

Title: %s
Subtitle: %s
Content: %s

Please address the following questions:

1. Based on the criteria, score each criterion on a scale of 0-2 and calculate the total score. Is the title clickbait? If the total score is 5 or higher, consider it clickbait.
2. If the title is clickbait, explain why in one sentence using the article content as evidence but don't use the word clickbait. Provide clear examples from the content that support your explanation.
3. Extract the answer to the question posed in the title (if there is one) from the article content.
4. Provide a brief summary of the article content.
%s`, title, subtitle, content, responseFormat)
}

// videoPrompt builds the user prompt for a video analysis; the thumbnail is
// attached as an inline image part alongside it.
func videoPrompt(videoTitle, transcript string) string {
	return fmt.Sprintf(`Here is a transcript of a YouTube video along with the thumbnail of the video. Please determine if the video is clickbait by comparing the thumbnail and video title against the transcript.

Video Title: %s
Transcript: %s

1. Based on the criteria, score each criterion on a scale of 0-2 and calculate the total score. Is the video clickbait? If the total score is 5 or higher, consider it clickbait.
2. If the video is clickbait, explain why in one sentence using the video content as evidence but don't use the word clickbait. Provide clear examples from the content that support your explanation.
3. Extract the answer to the question posed in the title or thumbnail (if there is one) from the video content.
4. Provide a brief summary of the video content.
%s`, videoTitle, transcript, responseFormat)
}

// fewShotExamples are fixed example turns injected per call so the model
// sees the expected register and format. Constant data, never mutated.
var fewShotExamples = []struct {
	user  string
	model string
}{
	{
		user: `Title: You Won't Believe What This Startup Did Next
Subtitle: A routine funding round
Content: The startup closed a standard Series A round of funding and plans to hire four engineers.`,
		model: `{"title":"Startup Closes Series A Funding Round","isClickBait":true,"clarityScore":3,"explanation":"The headline promises a shocking turn while the article describes a routine funding announcement and modest hiring plans.","answer":"It closed a Series A funding round.","summary":"A startup raised a standard Series A round and plans to hire four engineers."}`,
	},
	{
		user: `Title: City Council Approves New Bike Lanes on Main Street
Subtitle: Construction begins in June
Content: The city council voted 7-2 to add protected bike lanes along Main Street, with construction starting in June and finishing by September.`,
		model: `{"title":"City Council Approves New Bike Lanes on Main Street","isClickBait":false,"clarityScore":9,"explanation":"The headline states exactly what the article reports, a 7-2 council vote approving protected bike lanes.","answer":"","summary":"The city council approved protected bike lanes on Main Street, with construction from June to September."}`,
	},
}
