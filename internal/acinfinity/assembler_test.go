package acinfinity_test

import (
	"testing"

	"github.com/srg/acinf/internal/acinfinity"
	"github.com/stretchr/testify/suite"
)

type AssemblerTestSuite struct {
	suite.Suite

	assembler *acinfinity.Assembler
}

func (suite *AssemblerTestSuite) SetupTest() {
	suite.assembler = acinfinity.NewAssembler(acinfinity.DefaultAssemblerCapacity)
}

func (suite *AssemblerTestSuite) TestFeed_WholeFrame() {
	// GOAL: Verify a frame delivered in one notification is returned immediately
	//
	// TEST SCENARIO: Feed a 34-byte sensor frame → one frame returned → nothing buffered

	frame := acinfinity.SensorFrame(18.56, 70.03, 0.61)

	frames, err := suite.assembler.Feed(frame)

	suite.Require().NoError(err, "feed MUST succeed")
	suite.Require().Len(frames, 1, "MUST return exactly one frame")
	suite.Assert().Equal(frame, frames[0], "frame MUST be returned unchanged")
	suite.Assert().Zero(suite.assembler.Buffered(), "nothing MUST remain buffered")
}

func (suite *AssemblerTestSuite) TestFeed_FragmentedFrame() {
	// GOAL: Verify frames split at the default ATT payload size are reassembled
	//
	// TEST SCENARIO: Feed 20 + 14 bytes → nothing after first chunk → full frame after second

	frame := acinfinity.SensorFrame(18.56, 70.03, 0.61)

	frames, err := suite.assembler.Feed(frame[:20])
	suite.Require().NoError(err, "first fragment MUST be accepted")
	suite.Assert().Empty(frames, "no frame MUST be returned before it is complete")
	suite.Assert().Equal(20, suite.assembler.Buffered(), "first fragment MUST be buffered")

	frames, err = suite.assembler.Feed(frame[20:])
	suite.Require().NoError(err, "second fragment MUST be accepted")
	suite.Require().Len(frames, 1, "completed frame MUST be returned")
	suite.Assert().Equal(frame, frames[0], "reassembled frame MUST equal the original")
}

func (suite *AssemblerTestSuite) TestFeed_SplitHeader() {
	// GOAL: Verify a header split across notifications is handled
	//
	// TEST SCENARIO: Feed 3 bytes, then the rest → one frame returned

	frame := acinfinity.AckFrame(acinfinity.SetSequence)

	frames, err := suite.assembler.Feed(frame[:3])
	suite.Require().NoError(err, "partial header MUST be accepted")
	suite.Assert().Empty(frames, "no frame MUST be returned yet")

	frames, err = suite.assembler.Feed(frame[3:])
	suite.Require().NoError(err, "rest of frame MUST be accepted")
	suite.Require().Len(frames, 1, "frame MUST be returned")
	suite.Assert().Equal(frame, frames[0], "frame MUST match")
}

func (suite *AssemblerTestSuite) TestFeed_BackToBackFrames() {
	// GOAL: Verify several frames in one notification are all returned
	//
	// TEST SCENARIO: Feed ack + sensor frame concatenated → two frames in order

	ack := acinfinity.AckFrame(acinfinity.SetSequence)
	sensor := acinfinity.SensorFrame(21.5, 55, 1.15)
	chunk := append(append([]byte{}, ack...), sensor...)

	frames, err := suite.assembler.Feed(chunk)

	suite.Require().NoError(err, "feed MUST succeed")
	suite.Require().Len(frames, 2, "both frames MUST be returned")
	suite.Assert().Equal(ack, frames[0], "first frame MUST be the ack")
	suite.Assert().Equal(sensor, frames[1], "second frame MUST be the sensor frame")
}

func (suite *AssemblerTestSuite) TestFeed_RejectsGarbage() {
	// GOAL: Verify bytes that cannot start a frame are reported as malformed and discarded
	//
	// TEST SCENARIO: Feed garbage → ErrMalformedPayload → buffer empty → next valid frame decodes

	_, err := suite.assembler.Feed([]byte{0x01, 0x02, 0x03})
	suite.Assert().ErrorIs(err, acinfinity.ErrMalformedPayload, "garbage MUST be malformed")
	suite.Assert().Zero(suite.assembler.Buffered(), "buffer MUST be reset after an error")

	frame := acinfinity.AckFrame(acinfinity.SetSequence)
	frames, err := suite.assembler.Feed(frame)
	suite.Require().NoError(err, "assembler MUST recover after an error")
	suite.Assert().Len(frames, 1, "frame after recovery MUST be returned")
}

func (suite *AssemblerTestSuite) TestFeed_RejectsCorruptHeader() {
	// GOAL: Verify a corrupt header is not used to size the frame
	//
	// TEST SCENARIO: Flip a length byte → ErrMalformedPayload

	frame := acinfinity.SensorFrame(18.56, 70.03, 0.61)
	frame[3] ^= 0xff

	frames, err := suite.assembler.Feed(frame)

	suite.Assert().ErrorIs(err, acinfinity.ErrMalformedPayload, "corrupt header MUST be malformed")
	suite.Assert().Empty(frames, "no frame MUST be returned")
}

func (suite *AssemblerTestSuite) TestFeed_Overflow() {
	// GOAL: Verify the assembler bounds its memory
	//
	// TEST SCENARIO: Small assembler fed more than its capacity → ErrMalformedPayload

	small := acinfinity.NewAssembler(acinfinity.SensorFrameLen)
	_, err := small.Feed(make([]byte, acinfinity.SensorFrameLen+1))

	suite.Assert().ErrorIs(err, acinfinity.ErrMalformedPayload, "overflow MUST be malformed")
	suite.Assert().Zero(small.Buffered(), "buffer MUST be reset after overflow")
}

func TestAssemblerTestSuite(t *testing.T) {
	suite.Run(t, new(AssemblerTestSuite))
}
