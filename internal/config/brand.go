package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Brand holds the copy, prompts and sample pools used by the agents.
// Prompts use {placeholder} markers filled by service.RenderTemplate.
type Brand struct {
	Name                string   `yaml:"name"`
	DefaultSubject      string   `yaml:"default_subject"`
	FallbackMessage     string   `yaml:"fallback_message"`
	ScoringPrompt       string   `yaml:"scoring_prompt"`
	TemplatePrompt      string   `yaml:"template_prompt"`
	FulfillmentPrompt   string   `yaml:"fulfillment_prompt"`
	FulfillmentSubject  string   `yaml:"fulfillment_subject"`
	FulfillmentFallback string   `yaml:"fulfillment_fallback"`
	VideoURL            string   `yaml:"video_url"`
	SupportPrompt       string   `yaml:"support_prompt"`
	FirstTimeHint       string   `yaml:"first_time_hint"`
	InsightsPrompt      string   `yaml:"insights_prompt"`
	FinancePrompt       string   `yaml:"finance_prompt"`
	CommentPool         []string `yaml:"comment_pool"`
	BaseHandles         []string `yaml:"base_handles"`
	FirstNames          []string `yaml:"first_names"`
	Products            []string `yaml:"products"`
}

// DefaultBrand is the built-in Two Peaks Chai profile.
func DefaultBrand() Brand {
	return Brand{
		Name:           "Two Peaks Chai Co.",
		DefaultSubject: "Two Peaks Chai: Hello!",
		FallbackMessage: "Hi @{username}, thank you for the love! We would be thrilled to share a cup of " +
			"Two Peaks Chai with you. Take a look at our blends and find your ritual.",
		ScoringPrompt: `You are a marketing analyst for a premium chai brand.
Evaluate this Instagram comment and rate purchase interest 1-10.

Username: {username}
Comment: "{comment}"
Followers: {followers}
Likes on comment: {likes}

Respond only as:
SCORE: <number> | REASON: <short reason>`,
		TemplatePrompt: `You are a friendly social-media copywriter for Two Peaks Chai Co.
Write a concise {channel} outreach message for user @{username}.
Tone: warm, authentic, lightly playful.
Mention something about {reason} and invite them to explore Two Peaks Chai.

Return two lines:
Subject: <short subject line>
Message: <1-2 sentences>`,
		FulfillmentPrompt: `You are a warm, grateful brand founder writing a personalized thank-you email
to a customer of Two Peaks Chai Co.

Customer details:
- Name: {first_name}
- Product: {products}

Write a short email with a friendly thank-you note, mention that their order has arrived,
invite them to watch a short chai-making video from our grandmother's recipe at {video_url}
and invite them to leave a review if they enjoy it.

Tone: sincere, authentic, slightly playful, under 120 words.
Return two fields:
Subject: <short subject line>
Message: <personalized body text>`,
		FulfillmentSubject: "Thank you for your order!",
		FulfillmentFallback: "Hi {first_name},\n\nThank you for choosing Two Peaks Chai! We hope you are enjoying " +
			"your {products}. Here is a short video of our grandmother's chai ritual: {video_url}\n\n" +
			"If it brings you a calm moment, we would love a review.\n\n" +
			"Warm regards,\nPrasad and Hannah\nFounders of Two Peaks Chai Co.",
		VideoURL: "https://www.youtube.com/watch?v=EaKA3Wc-49s",
		SupportPrompt: `You are the official Two Peaks Chai Co. support assistant.
Your tone is warm and friendly, blending Indian heritage and modern wellness.
Use the retrieved context to answer customer questions clearly and personally.
If you detect the user is new or a first-time buyer, recommend the Founder's Ritual Sampler Box.
Always keep your tone human, empathetic and concise.`,
		FirstTimeHint: "[Suggest the Founder's Ritual Sampler Box, perfect for first-time buyers!]",
		InsightsPrompt: `You are a marketing strategist for Two Peaks Chai Co., a premium DTC chai brand.
You have customer data showing total orders, total spend, average order value, recency and assigned segments.

Analyze the following customer data and write a concise report (3-5 paragraphs) covering
an overview of the key segments, behavioral insights and recommended marketing actions.

Customer Segment Snapshot:
{segment_table}

Write in a warm, executive-friendly tone. End with a one-line summary headline.`,
		FinancePrompt: `You are a financial data analyst.
Here is a preview of the dataset (first 50 rows):
{csv_preview}
Answer this question clearly and precisely:
"{question}"`,
		CommentPool: []string{
			"This chai just made my morning ☕️✨",
			"Need this in a bulk pack 😍",
			"Loved the saffron notes!",
			"Best chai I've ever had!",
			"Can you ship internationally?",
			"The ritual is everything. Beautiful blend.",
		},
		BaseHandles: []string{
			"chai_lover", "tea_rider", "zenleaf", "mountainbrew", "aromabliss",
			"goldenglow", "masalamaven", "rosedrifter", "saffronseeker", "wellnessbrew",
		},
		FirstNames: []string{"Asha", "Raj", "Maya", "Geeta", "Karan", "Neha", "John", "Priya", "Rohan", "Emma"},
		Products: []string{
			"Signature Masala Chai", "Rose Radiance Chai", "Saffron Infused Chai",
			"Cardamom Bliss Chai", "Tulsi Serenity Chai", "Ginger Zest Chai",
			"Assam Breakfast Chai", "Founder's Ritual Sampler Box",
		},
	}
}

// LoadBrand overlays the YAML file at path onto DefaultBrand. A missing
// file is not an error.
func LoadBrand(path string) (Brand, error) {
	brand := DefaultBrand()
	if path == "" {
		return brand, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return brand, nil
	}
	if err != nil {
		return Brand{}, fmt.Errorf("read brand file: %w", err)
	}
	var f Brand
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Brand{}, fmt.Errorf("parse brand file: %w", err)
	}
	brand.merge(f)
	return brand, nil
}

func (b *Brand) merge(f Brand) {
	setString(&b.Name, f.Name)
	setString(&b.DefaultSubject, f.DefaultSubject)
	setString(&b.FallbackMessage, f.FallbackMessage)
	setString(&b.ScoringPrompt, f.ScoringPrompt)
	setString(&b.TemplatePrompt, f.TemplatePrompt)
	setString(&b.FulfillmentPrompt, f.FulfillmentPrompt)
	setString(&b.FulfillmentSubject, f.FulfillmentSubject)
	setString(&b.FulfillmentFallback, f.FulfillmentFallback)
	setString(&b.VideoURL, f.VideoURL)
	setString(&b.SupportPrompt, f.SupportPrompt)
	setString(&b.FirstTimeHint, f.FirstTimeHint)
	setString(&b.InsightsPrompt, f.InsightsPrompt)
	setString(&b.FinancePrompt, f.FinancePrompt)
	setStrings(&b.CommentPool, f.CommentPool)
	setStrings(&b.BaseHandles, f.BaseHandles)
	setStrings(&b.FirstNames, f.FirstNames)
	setStrings(&b.Products, f.Products)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, v []string) {
	if len(v) > 0 {
		*dst = v
	}
}
