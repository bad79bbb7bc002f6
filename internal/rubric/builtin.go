package rubric

var generalVetoes = []string{
	"抄袭、剽窃他人成果或大段照搬网络资料",
	"存在违背师德师风、政治立场错误或意识形态问题的内容",
	"未提交核心文件或提交内容与材料类型明显不符",
	"内容严重缺失，无法体现基本教学工作",
}

var defaultBonusItems = []string{
	"获得校级及以上教学竞赛奖项",
	"承担公开课、示范课或专题讲座",
	"教学成果被推广或发表",
}

var builtins = map[string]Rubric{
	LessonPlan: {
		FileType:    LessonPlan,
		Description: "单课时或单元教学设计方案",
		Criteria: []Criterion{
			{Name: "教学目标", MaxScore: 20, Description: "目标明确、具体、可测，符合课程标准与学情"},
			{Name: "教学内容", MaxScore: 20, Description: "内容准确，重点难点把握恰当"},
			{Name: "教学过程", MaxScore: 30, Description: "环节完整、逻辑清晰，时间分配合理"},
			{Name: "教学方法", MaxScore: 15, Description: "方法得当，体现学生主体与信息技术融合"},
			{Name: "教学评价", MaxScore: 15, Description: "评价方式多元，作业与反馈设计有效"},
		},
		GeneralVetoes: generalVetoes,
		SpecificVetoes: []string{
			"缺少教学目标或教学过程等基本环节",
			"教案内容与所授课程明显不符",
		},
		Bonus: BonusRule{Items: defaultBonusItems},
	},
	Reflection: {
		FileType:    Reflection,
		Description: "课后或阶段性教学反思",
		Criteria: []Criterion{
			{Name: "问题发现", MaxScore: 25, Description: "能够发现教学中的真实问题"},
			{Name: "原因分析", MaxScore: 30, Description: "分析深入，有理论或数据支撑"},
			{Name: "改进措施", MaxScore: 30, Description: "措施具体可行，具有针对性"},
			{Name: "表达规范", MaxScore: 15, Description: "条理清晰，语言规范"},
		},
		GeneralVetoes: generalVetoes,
		SpecificVetoes: []string{
			"通篇空泛套话，未结合具体教学实例",
		},
		Bonus: BonusRule{Items: defaultBonusItems},
	},
	Observation: {
		FileType:    Observation,
		Description: "教研活动记录或听课记录",
		Criteria: []Criterion{
			{Name: "记录完整性", MaxScore: 30, Description: "时间、地点、授课人、课题等要素齐全"},
			{Name: "过程描述", MaxScore: 30, Description: "课堂或研讨过程记录翔实"},
			{Name: "评价建议", MaxScore: 25, Description: "评价客观，建议具有可操作性"},
			{Name: "个人收获", MaxScore: 15, Description: "有结合自身教学的思考"},
		},
		GeneralVetoes: generalVetoes,
		SpecificVetoes: []string{
			"记录缺少听课对象或活动时间等基本信息",
		},
		Bonus: BonusRule{Items: defaultBonusItems},
	},
	GradeAnalysis: {
		FileType:    GradeAnalysis,
		Description: "考试成绩分析或学情分析报告",
		Criteria: []Criterion{
			{Name: "数据统计", MaxScore: 25, Description: "平均分、及格率、分数段等统计准确"},
			{Name: "问题诊断", MaxScore: 30, Description: "结合试题与学生表现诊断问题"},
			{Name: "分层分析", MaxScore: 20, Description: "关注不同层次学生的表现"},
			{Name: "改进策略", MaxScore: 25, Description: "提出有针对性的教学改进措施"},
		},
		GeneralVetoes: generalVetoes,
		SpecificVetoes: []string{
			"数据明显虚假或前后矛盾",
			"仅罗列分数，没有任何分析",
		},
		Bonus: BonusRule{Items: defaultBonusItems},
	},
	Courseware: {
		FileType:    Courseware,
		Description: "配合课堂教学使用的演示课件",
		Criteria: []Criterion{
			{Name: "内容科学性", MaxScore: 30, Description: "内容准确，无科学性错误"},
			{Name: "结构设计", MaxScore: 25, Description: "结构清晰，与教学环节对应"},
			{Name: "版面呈现", MaxScore: 20, Description: "版面简洁美观，文字图表清楚"},
			{Name: "交互与媒体", MaxScore: 15, Description: "媒体运用恰当，促进学生参与"},
			{Name: "创新性", MaxScore: 10, Description: "设计有新意"},
		},
		GeneralVetoes: generalVetoes,
		SpecificVetoes: []string{
			"课件存在明显知识性错误",
		},
		Bonus: BonusRule{Items: defaultBonusItems},
	},
}
