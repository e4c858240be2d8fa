package executor

// Prompt templates used by the built-in executors. Placeholders follow the
// {{key}} form consumed by RenderTemplate.

const courseGenerationPrompt = `You are writing learning content for a school course.

Subject: {{subject}}
Grade: {{grade}}

Write a short course as JSON with this exact shape:
{"title": "...", "studyTexts": [{"id": "text-1", "title": "...", "content": "..."}]}

Rules:
- Use short sentences suitable for grade {{grade}} readers.
- Use simple, common words only.
- Return only the JSON object, no prose around it.`

const quizGenerationPrompt = `You are writing a quiz for a school course.

Subject: {{subject}}
Grade: {{grade}}

Write 5 quiz questions as JSON with this exact shape:
{"title": "...", "studyTexts": [{"id": "q-1", "title": "Question 1", "content": "..."}]}

Return only the JSON object.`

const lessonRewritePrompt = `Rewrite the following lesson text so it is suitable for grade {{grade}} readers.
Keep the meaning, shorten the sentences, use simple words.

Lesson:
{{content}}

Return the result as JSON: {"title": "...", "studyTexts": [{"id": "text-1", "content": "..."}]}`

const repairPrompt = `The following study text failed a content check.

Problem: {{issue}}

Text:
{{content}}

Rewrite the text so the problem is fixed. Keep the topic and length. Use only
simple, grade-appropriate words and short sentences. Return only the rewritten
text, no commentary.`
