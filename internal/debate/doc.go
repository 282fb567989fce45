// Package debate implements the turn-based debate session engine.
//
// A [Session] lives in one chat channel and moves strictly forward through
// four phases:
//
//   - Recruiting: participants register with [Session.Join]
//   - Selecting: the instantaneous step inside [Session.Begin] that draws two
//     debaters and a topic, or ends the session if fewer than two joined
//   - Active: the two debaters alternate turns through [Session.Submit]
//   - Terminated: absorbing; nothing is accepted any more
//
// Every inbound message passes identity and turn checks, then length checks,
// then the moderation filter, and only then is appended to the transcript.
// Rejections are reported as [Result] values, never as Go errors. Three
// moderation rejections from one debater end the session.
//
// A [Registry] maps channel identities to sessions and guarantees at most one
// session per channel.
//
// # Usage
//
//	reg := debate.NewRegistry()
//	sess, err := reg.Create("chan-1", debate.DefaultConfig(), moderation.Default())
//	sess.Join("alice")
//	sess.Join("bob")
//	sel, _ := sess.Begin(rand.New(rand.NewPCG(1, 2)), []string{"Remote work beats the office"})
//	res := sess.Submit(debate.Message{AuthorID: sel.FirstSpeaker, Content: "Opening statement."})
//
// # Thread Safety
//
// Session and Registry are safe for concurrent use. Each session serializes
// its own mutations behind one mutex; sessions in different channels never
// contend.
package debate
