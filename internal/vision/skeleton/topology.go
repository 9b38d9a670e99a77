package skeleton

// Canonical joint names produced by the keypoint detector. Left/right are
// from the subject's perspective.
const (
	Nose      = "Nose"
	Neck      = "Neck"
	Head      = "Head"
	RShoulder = "RShoulder"
	RElbow    = "RElbow"
	RWrist    = "RWrist"
	LShoulder = "LShoulder"
	LElbow    = "LElbow"
	LWrist    = "LWrist"
	RHip      = "RHip"
	RKnee     = "RKnee"
	RAnkle    = "RAnkle"
	LHip      = "LHip"
	LKnee     = "LKnee"
	LAnkle    = "LAnkle"
	REye      = "REye"
	LEye      = "LEye"
	REar      = "REar"
	LEar      = "LEar"
)

// Link is one anatomical adjacency between two named joints.
type Link struct {
	A, B string
}

// Topology is the fixed anatomical adjacency of the human skeleton: the
// head chain (nose-neck plus the ear-eye-nose chains on each side), the
// arms and the legs, left/right symmetric. It is a read-only configuration
// artifact; never mutate it.
var Topology = []Link{
	// Head
	{Nose, Neck},
	{REye, Nose},
	{REar, REye},
	{LEye, Nose},
	{LEar, LEye},
	// Arms
	{RShoulder, Neck},
	{RElbow, RShoulder},
	{RWrist, RElbow},
	{LShoulder, Neck},
	{LElbow, LShoulder},
	{LWrist, LElbow},
	// Legs
	{RHip, Neck},
	{RKnee, RHip},
	{RAnkle, RKnee},
	{LHip, Neck},
	{LKnee, LHip},
	{LAnkle, LKnee},
}
