package persona

import "testing"

func testRouter() Router {
	return Router{Privileged: "Seagata", Tag: "@hinabot"}
}

func direct(sender, text string) Message {
	return Message{SenderName: sender, SenderID: "u1", ChatID: "42", ChatKind: KindDirect, Text: text}
}

func group(text string) Message {
	return Message{SenderName: "Anyone", SenderID: "u2", ChatID: "-100", ChatKind: KindGroup, Text: text}
}

func TestClassifyExportBrief(t *testing.T) {
	action := testRouter().Classify(direct("Seagata", "PDF it: plan my week"))
	if action.Mode != ModeExportBrief {
		t.Fatalf("expected export mode, got %s", action.Mode)
	}
	if action.Key != "42" {
		t.Fatalf("expected conversation key 42, got %s", action.Key)
	}
}

func TestClassifyExportWinsOverOtherTriggers(t *testing.T) {
	action := testRouter().Classify(direct("Seagata", "PDF it and also summarize this https://youtu.be/ABCDEFGHIJK"))
	if action.Mode != ModeExportBrief {
		t.Fatalf("export should take priority, got %s", action.Mode)
	}
}

func TestClassifyOpinionWithLink(t *testing.T) {
	action := testRouter().Classify(direct("Seagata", "what is your opinion on https://youtu.be/ABCDEFGHIJK"))
	if action.Mode != ModeOpinion {
		t.Fatalf("expected opinion mode, got %s", action.Mode)
	}
	if action.VideoURL != "https://youtu.be/ABCDEFGHIJK" {
		t.Fatalf("expected video url captured, got %q", action.VideoURL)
	}
}

func TestClassifyOpinionWithoutLinkAsksForOne(t *testing.T) {
	action := testRouter().Classify(direct("Seagata", "what is your opinion on this song"))
	if action.Mode != ModeAskForLink {
		t.Fatalf("expected ask-for-link, got %s", action.Mode)
	}
}

func TestClassifySummarize(t *testing.T) {
	action := testRouter().Classify(direct("Seagata", "summarize this www.youtube.com/watch?v=ABCDEFGHIJK please"))
	if action.Mode != ModeSummarize {
		t.Fatalf("expected summarize mode, got %s", action.Mode)
	}
	if action.VideoURL != "www.youtube.com/watch?v=ABCDEFGHIJK" {
		t.Fatalf("unexpected video url %q", action.VideoURL)
	}
}

func TestClassifyLinkWithoutTriggerIsPrivateReply(t *testing.T) {
	// A bare link must not start the video pipeline; the phrase gates the scan.
	action := testRouter().Classify(direct("Seagata", "look https://youtu.be/ABCDEFGHIJK"))
	if action.Mode != ModePrivateReply {
		t.Fatalf("expected private reply, got %s", action.Mode)
	}
}

func TestClassifyPrivateDefault(t *testing.T) {
	action := testRouter().Classify(direct("Seagata", "good morning"))
	if action.Mode != ModePrivateReply {
		t.Fatalf("expected private reply, got %s", action.Mode)
	}
}

func TestClassifyUnknownDirectSenderShrugs(t *testing.T) {
	action := testRouter().Classify(direct("Stranger", "PDF it: do my taxes"))
	if action.Mode != ModeShrug {
		t.Fatalf("stranger must not reach export mode, got %s", action.Mode)
	}
}

func TestClassifyGroupTagged(t *testing.T) {
	action := testRouter().Classify(group("@hinabot hello, what's up"))
	if action.Mode != ModeGroupReply {
		t.Fatalf("expected group reply, got %s", action.Mode)
	}
	if action.Key != "-100" {
		t.Fatalf("expected group conversation key, got %s", action.Key)
	}
}

func TestClassifyGroupTagCaseInsensitive(t *testing.T) {
	action := testRouter().Classify(group("hey @HinaBot are you there"))
	if action.Mode != ModeGroupReply {
		t.Fatalf("expected group reply for mixed-case tag, got %s", action.Mode)
	}
}

func TestClassifyGroupUntaggedIgnored(t *testing.T) {
	action := testRouter().Classify(group("just chatting among ourselves"))
	if action.Mode != ModeIgnore {
		t.Fatalf("untagged group chatter must be ignored, got %s", action.Mode)
	}
}

func TestTurnPairShape(t *testing.T) {
	p := Persona{Name: "Hina"}
	pair := p.TurnPair(p.UserLine("Seagata", "hello"), "hi")
	if pair != "Seagata: hello\nHina: hi\n" {
		t.Fatalf("unexpected turn pair %q", pair)
	}
}
